package decoder

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regattaflow/trackcore/internal/geo"
	"github.com/regattaflow/trackcore/internal/logging"
	"github.com/regattaflow/trackcore/internal/models"
)

// creatorDevices maps substrings of the GPX creator attribute to device tags.
// Order matters: more specific entries shadow the family entry below them.
var creatorDevices = []struct {
	substr string
	device models.DeviceType
}{
	{"meridian mini", models.DeviceMeridianMini},
	{"meridian sport", models.DeviceMeridianSport},
	{"meridian pro", models.DeviceMeridianPro},
	{"meridian", models.DeviceMeridian},
	{"velocitek", models.DeviceVelocitek},
	{"vakaros", models.DeviceVakaros},
	{"garmin", models.DeviceGarmin},
	{"raceqs", models.DeviceRaceQs},
}

type gpxFile struct {
	XMLName xml.Name   `xml:"gpx"`
	Creator string     `xml:"creator,attr"`
	Tracks  []gpxTrack `xml:"trk"`
	Routes  []gpxRoute `xml:"rte"`
}

type gpxTrack struct {
	Name     string       `xml:"name"`
	Desc     string       `xml:"desc"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxRoute struct {
	Name   string     `xml:"name"`
	Desc   string     `xml:"desc"`
	Points []gpxPoint `xml:"rtept"`
}

type gpxPoint struct {
	Lat        string        `xml:"lat,attr"`
	Lon        string        `xml:"lon,attr"`
	Ele        *float64      `xml:"ele"`
	Time       string        `xml:"time"`
	Course     *float64      `xml:"course"`
	Speed      *float64      `xml:"speed"`
	HDOP       *float64      `xml:"hdop"`
	Satellites *int          `xml:"sat"`
	Extensions gpxExtensions `xml:"extensions"`
}

// gpxExtensions flattens the extension subtree into local-name → text pairs.
// Vendors nest and namespace these freely, so element names are matched by
// lowercased local name only and the first value for a name wins.
type gpxExtensions struct {
	values map[string]string
}

func (e *gpxExtensions) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	e.values = map[string]string{}
	var current string
	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = strings.ToLower(t.Name.Local)
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
			value := strings.TrimSpace(text.String())
			if current != "" && value != "" {
				if _, ok := e.values[current]; !ok {
					e.values[current] = value
				}
			}
			current = ""
			text.Reset()
		}
	}
}

func (e *gpxExtensions) float(names ...string) *float64 {
	for _, name := range names {
		raw, ok := e.values[name]
		if !ok {
			continue
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return models.Float64Ptr(v)
		}
	}
	return nil
}

// DecodeGPX decodes GPX tracks, falling back to routes when the file carries
// no trk elements. Points without numeric coordinates are dropped silently.
func DecodeGPX(data []byte) (*models.DecodeResult, error) {
	result := &models.DecodeResult{SourceFormat: models.FormatGPX}

	var file gpxFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return fail(result, &FormatError{Format: models.FormatGPX, Message: "malformed XML", Err: err})
	}

	device := inferCreatorDevice(file.Creator)
	result.DeviceType = device

	var tracks []models.Track
	for _, trk := range file.Tracks {
		var raw []gpxPoint
		for _, seg := range trk.Segments {
			raw = append(raw, seg.Points...)
		}
		if t, ok := buildGPXTrack(raw, trk.Name, trk.Desc, file.Creator, device); ok {
			tracks = append(tracks, t)
		}
	}
	if len(tracks) == 0 {
		for _, rte := range file.Routes {
			if t, ok := buildGPXTrack(rte.Points, rte.Name, rte.Desc, file.Creator, device); ok {
				tracks = append(tracks, t)
			}
		}
	}

	if len(tracks) == 0 {
		return fail(result, &DataError{Format: models.FormatGPX, Message: "no usable track or route points"})
	}

	logging.Debug("decoded gpx file", "creator", file.Creator, "device", device, "tracks", len(tracks))

	result.Success = true
	result.Tracks = tracks
	return result, nil
}

func inferCreatorDevice(creator string) models.DeviceType {
	lower := strings.ToLower(creator)
	for _, rule := range creatorDevices {
		if strings.Contains(lower, rule.substr) {
			return rule.device
		}
	}
	return models.DeviceGPXGeneric
}

func buildGPXTrack(raw []gpxPoint, name, desc, creator string, device models.DeviceType) (models.Track, bool) {
	points := make([]models.TrackPoint, 0, len(raw))
	for _, rp := range raw {
		pt, ok := convertGPXPoint(rp)
		if !ok {
			continue
		}
		deriveKinematics(&pt, points)
		points = append(points, pt)
	}
	if len(points) == 0 {
		return models.Track{}, false
	}
	return models.Track{
		ID:          uuid.NewString(),
		DeviceType:  device,
		Points:      points,
		StartTimeMS: points[0].TimestampMS,
		EndTimeMS:   points[len(points)-1].TimestampMS,
		Name:        name,
		Description: desc,
		Creator:     creator,
	}, true
}

func convertGPXPoint(rp gpxPoint) (models.TrackPoint, bool) {
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(rp.Lat), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(rp.Lon), 64)
	if latErr != nil || lngErr != nil {
		return models.TrackPoint{}, false
	}

	pt := models.TrackPoint{Lat: lat, Lng: lng}
	if rp.Time != "" {
		if t, err := time.Parse(time.RFC3339, rp.Time); err == nil {
			pt.TimestampMS = t.UnixMilli()
		}
	}
	pt.AltitudeM = rp.Ele
	pt.HDOP = rp.HDOP
	pt.Satellites = rp.Satellites
	pt.SpeedKn = rp.Speed
	pt.HeadingDeg = rp.Course

	ext := rp.Extensions
	if pt.SpeedKn == nil {
		pt.SpeedKn = ext.float("speed")
	}
	if pt.HeadingDeg == nil {
		pt.HeadingDeg = ext.float("course", "heading")
	}
	pt.SOGKn = ext.float("sog", "speedoverground")
	pt.COGDeg = ext.float("cog", "courseoverground")
	pt.TWADeg = ext.float("twa", "truewindangle")
	pt.TWSKn = ext.float("tws", "truewindspeed")
	pt.HeelDeg = ext.float("heel", "heelangle")
	pt.PitchDeg = ext.float("pitch", "pitchangle")
	return pt, true
}

// deriveKinematics fills missing speed and heading from the previous point.
// Skipped when elapsed time is zero or negative: a derived value would be
// degenerate or infinite.
func deriveKinematics(pt *models.TrackPoint, prior []models.TrackPoint) {
	if pt.SpeedKn != nil && pt.HeadingDeg != nil {
		return
	}
	if len(prior) == 0 {
		return
	}
	prev := prior[len(prior)-1]
	elapsedSec := float64(pt.TimestampMS-prev.TimestampMS) / 1000
	if elapsedSec <= 0 {
		return
	}
	if pt.SpeedKn == nil {
		meters := geo.HaversineMeters(prev.Lat, prev.Lng, pt.Lat, pt.Lng)
		pt.SpeedKn = models.Float64Ptr(geo.KnotsFromMetersPerSecond(meters / elapsedSec))
	}
	if pt.HeadingDeg == nil {
		pt.HeadingDeg = models.Float64Ptr(geo.BearingDegrees(prev.Lat, prev.Lng, pt.Lat, pt.Lng))
	}
}
