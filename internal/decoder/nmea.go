package decoder

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/google/uuid"

	"github.com/regattaflow/trackcore/internal/logging"
	"github.com/regattaflow/trackcore/internal/models"
)

// DecodeNMEA decodes an exported NMEA 0183 log. RMC sentences carry the fix
// (position, SOG, COG, date); GGA sentences between fixes contribute altitude,
// satellite count, and HDOP to the next RMC. Other sentence types are ignored.
func DecodeNMEA(data []byte) (*models.DecodeResult, error) {
	result := &models.DecodeResult{
		SourceFormat: models.FormatNMEA,
		DeviceType:   models.DeviceUnknown,
	}

	warnings := newWarningCollector()
	var points []models.TrackPoint

	// Rolling GGA state; RMC is the fix anchor and snapshots it.
	var altitude, hdop *float64
	var sats *int

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			warnings.Add("unparsable sentence", fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}

		switch sentence.DataType() {
		case nmea.TypeRMC:
			m := sentence.(nmea.RMC)
			if m.Validity != nmea.ValidRMC {
				warnings.Add("void fix skipped", fmt.Sprintf("line %d", lineNo))
				continue
			}
			pt := models.TrackPoint{
				Lat:         m.Latitude,
				Lng:         m.Longitude,
				TimestampMS: rmcUnixMilli(m.Date, m.Time),
				SpeedKn:     models.Float64Ptr(m.Speed),
				COGDeg:      models.Float64Ptr(m.Course),
				AltitudeM:   altitude,
				HDOP:        hdop,
				Satellites:  sats,
			}
			points = append(points, pt)
			altitude, hdop, sats = nil, nil, nil
		case nmea.TypeGGA:
			m := sentence.(nmea.GGA)
			altitude = models.Float64Ptr(m.Altitude)
			hdop = models.Float64Ptr(m.HDOP)
			sats = models.IntPtr(int(m.NumSatellites))
		}
	}
	if err := scanner.Err(); err != nil {
		return fail(result, &FormatError{Format: models.FormatNMEA, Message: "unreadable input", Err: err})
	}

	if len(points) == 0 {
		return fail(result, &DataError{Format: models.FormatNMEA, Message: "no valid RMC fixes"})
	}

	track := models.Track{
		ID:          uuid.NewString(),
		DeviceType:  models.DeviceUnknown,
		Points:      points,
		StartTimeMS: points[0].TimestampMS,
		EndTimeMS:   points[len(points)-1].TimestampMS,
		Name:        "NMEA import",
	}

	logging.Debug("decoded nmea log", "lines", lineNo, "fixes", len(points), "warnings", len(warnings.Messages()))

	result.Success = true
	result.Tracks = []models.Track{track}
	result.Warnings = warnings.Messages()
	return result, nil
}

// rmcUnixMilli combines the RMC date and time-of-day fields. The two-digit
// year is anchored to 2000; receivers predating that are out of scope.
func rmcUnixMilli(d nmea.Date, t nmea.Time) int64 {
	if !d.Valid || !t.Valid {
		return 0
	}
	ts := time.Date(2000+d.YY, time.Month(d.MM), d.DD, t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
	return ts.UnixMilli()
}
