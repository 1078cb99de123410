package decoder

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regattaflow/trackcore/internal/logging"
	"github.com/regattaflow/trackcore/internal/models"
)

// csvColumns maps header synonyms to canonical column names. Matching is
// case-insensitive and whitespace-tolerant.
var csvColumns = map[string]string{
	"time":       "timestamp",
	"timestamp":  "timestamp",
	"utc":        "timestamp",
	"date":       "timestamp",
	"lat":        "lat",
	"latitude":   "lat",
	"lon":        "lng",
	"lng":        "lng",
	"longitude":  "lng",
	"speed":      "speed",
	"sog":        "speed",
	"spd":        "speed",
	"speed_kts":  "speed",
	"heading":    "heading",
	"hdg":        "heading",
	"head":       "heading",
	"cog":        "cog",
	"course":     "cog",
	"altitude":   "altitude",
	"alt":        "altitude",
	"ele":        "altitude",
	"hdop":       "hdop",
	"sats":       "sats",
	"satellites": "sats",
}

// csvTimeLayouts are tried in order before falling back to numeric unix time.
var csvTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05",
}

// unixMillisThreshold separates second from millisecond unix timestamps.
// Values at or above it are already milliseconds.
const unixMillisThreshold = 1e12

// DecodeMeridianCSV decodes the CSV export written by the Meridian desktop
// app. Column order is free; headers are matched through the synonym table.
// Rows with unparsable coordinates are skipped and reported as warnings.
func DecodeMeridianCSV(data []byte) (*models.DecodeResult, error) {
	result := &models.DecodeResult{
		SourceFormat: models.FormatMeridianCSV,
		DeviceType:   models.DeviceUnknown,
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fail(result, &FormatError{Format: models.FormatMeridianCSV, Message: "missing header row", Err: err})
	}

	cols := map[string]int{}
	for i, name := range header {
		canonical, ok := csvColumns[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, dup := cols[canonical]; !dup {
			cols[canonical] = i
		}
	}
	latIdx, hasLat := cols["lat"]
	lngIdx, hasLng := cols["lng"]
	if !hasLat || !hasLng {
		return fail(result, &DataError{Format: models.FormatMeridianCSV, Message: "no latitude/longitude columns in header"})
	}

	warnings := newWarningCollector()
	var points []models.TrackPoint
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			warnings.Add("malformed csv row", fmt.Sprintf("row %d: %v", row, err))
			continue
		}

		lat, latErr := csvFloat(record, latIdx)
		lng, lngErr := csvFloat(record, lngIdx)
		if latErr != nil || lngErr != nil {
			warnings.Add("unparsable coordinates", fmt.Sprintf("row %d", row))
			continue
		}

		pt := models.TrackPoint{Lat: lat, Lng: lng}
		if idx, ok := cols["timestamp"]; ok {
			ts, err := parseCSVTime(field(record, idx))
			if err != nil {
				warnings.Add("unparsable timestamp", fmt.Sprintf("row %d: %q", row, field(record, idx)))
			} else {
				pt.TimestampMS = ts
			}
		}
		pt.SpeedKn = csvOptFloat(record, cols, "speed", row, warnings)
		pt.HeadingDeg = csvOptFloat(record, cols, "heading", row, warnings)
		pt.COGDeg = csvOptFloat(record, cols, "cog", row, warnings)
		pt.AltitudeM = csvOptFloat(record, cols, "altitude", row, warnings)
		pt.HDOP = csvOptFloat(record, cols, "hdop", row, warnings)
		if idx, ok := cols["sats"]; ok {
			if v, err := strconv.Atoi(strings.TrimSpace(field(record, idx))); err == nil {
				pt.Satellites = models.IntPtr(v)
			}
		}
		points = append(points, pt)
	}

	if len(points) == 0 {
		return fail(result, &DataError{Format: models.FormatMeridianCSV, Message: "no decodable rows"})
	}

	track := models.Track{
		ID:          uuid.NewString(),
		DeviceType:  models.DeviceUnknown,
		Points:      points,
		StartTimeMS: points[0].TimestampMS,
		EndTimeMS:   points[len(points)-1].TimestampMS,
		Name:        "Meridian CSV import",
	}

	logging.Debug("decoded meridian csv track", "rows", row, "points", len(points), "warnings", len(warnings.Messages()))

	result.Success = true
	result.Tracks = []models.Track{track}
	result.Warnings = warnings.Messages()
	return result, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func csvFloat(record []string, idx int) (float64, error) {
	return strconv.ParseFloat(field(record, idx), 64)
}

func csvOptFloat(record []string, cols map[string]int, name string, row int, warnings *warningCollector) *float64 {
	idx, ok := cols[name]
	if !ok {
		return nil
	}
	raw := field(record, idx)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		warnings.Add("unparsable "+name, fmt.Sprintf("row %d: %q", row, raw))
		return nil
	}
	return models.Float64Ptr(v)
}

// parseCSVTime accepts the layouts in csvTimeLayouts, then numeric unix time.
// Numeric values are seconds unless large enough to already be milliseconds.
func parseCSVTime(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UnixMilli(), nil
		}
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized timestamp %q", raw)
	}
	if n >= unixMillisThreshold {
		return int64(n), nil
	}
	return int64(n * 1000), nil
}
