package decoder

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/regattaflow/trackcore/internal/logging"
	"github.com/regattaflow/trackcore/internal/models"
)

// Meridian logger binary layout. Offsets and scaling are a compatibility
// contract with the device firmware; do not change them.
//
//	0   magic "MTL" (3 bytes)
//	3   format version (1 byte, must equal meridianVersion)
//	4   device code (1 byte)
//	5   serial number (16 bytes, NUL padded)
//	21  firmware version major.minor (2 bytes)
//	23  track name (32 bytes, NUL padded)
//	55  start time, unix seconds (u32 LE)
//	59  end time, unix seconds (u32 LE)
//	63  sample rate in Hz (1 byte)
//	64  point count (u32 LE)
//	68  point records, meridianPointSize bytes each
const (
	meridianMagic      = "MTL"
	meridianVersion    = 2
	meridianHeaderSize = 68
	meridianPointSize  = 28

	meridianSerialWidth = 16
	meridianNameWidth   = 32
)

// meridianDevices maps the header device code to a device tag. Codes outside
// the table decode as unknown rather than failing the import.
var meridianDevices = map[uint8]models.DeviceType{
	1: models.DeviceMeridianMini,
	2: models.DeviceMeridianSport,
	3: models.DeviceMeridianPro,
}

// DecodeMeridian decodes a Meridian logger export, trying the binary format
// first and falling back to the CSV export when the binary magic is absent.
func DecodeMeridian(data []byte) (*models.DecodeResult, error) {
	if len(data) >= len(meridianMagic) && bytes.HasPrefix(data, []byte(meridianMagic)) {
		return DecodeMeridianBinary(data)
	}
	return DecodeMeridianCSV(data)
}

// DecodeMeridianBinary decodes the fixed binary logger format. A declared
// point count that overruns the buffer is not an error: the complete records
// that fit are returned and the shortfall is reported as a warning.
func DecodeMeridianBinary(data []byte) (*models.DecodeResult, error) {
	result := &models.DecodeResult{SourceFormat: models.FormatMeridian}

	r := newByteReader(data)

	magic, err := r.Bytes(len(meridianMagic))
	if err != nil || string(magic) != meridianMagic {
		return fail(result, &FormatError{
			Format:  models.FormatMeridian,
			Message: "missing MTL magic bytes",
		})
	}
	version, err := r.ReadU8()
	if err != nil {
		return fail(result, &FormatError{Format: models.FormatMeridian, Message: "truncated header", Err: err})
	}
	if version != meridianVersion {
		return fail(result, &FormatError{
			Format:  models.FormatMeridian,
			Message: fmt.Sprintf("unsupported format version %d (supported: %d)", version, meridianVersion),
		})
	}

	hdr, err := readMeridianHeader(r)
	if err != nil {
		return fail(result, &FormatError{Format: models.FormatMeridian, Message: "truncated header", Err: err})
	}
	result.DeviceType = hdr.device

	warnings := newWarningCollector()
	points := make([]models.TrackPoint, 0, hdr.pointCount)
	for i := uint32(0); i < hdr.pointCount; i++ {
		if r.Remaining() < meridianPointSize {
			warnings.Add("declared point count exceeds buffer",
				fmt.Sprintf("declared %d, decoded %d", hdr.pointCount, len(points)))
			break
		}
		pt, err := readMeridianPoint(r)
		if err != nil {
			// need() guards above make this unreachable in practice
			warnings.Add("unreadable point record", fmt.Sprintf("record %d", i))
			break
		}
		points = append(points, pt)
	}

	if len(points) == 0 {
		return fail(result, &DataError{Format: models.FormatMeridian, Message: "no decodable points in track"})
	}

	track := models.Track{
		ID:          uuid.NewString(),
		DeviceType:  hdr.device,
		Points:      points,
		StartTimeMS: points[0].TimestampMS,
		EndTimeMS:   points[len(points)-1].TimestampMS,
		Name:        hdr.name,
		Creator:     fmt.Sprintf("Meridian %s fw %d.%d", hdr.serial, hdr.fwMajor, hdr.fwMinor),
	}

	logging.Debug("decoded meridian binary track",
		"device", hdr.device,
		"serial", hdr.serial,
		"sample_rate_hz", hdr.sampleRate,
		"header_start_s", hdr.startSec,
		"header_end_s", hdr.endSec,
		"points", len(points),
	)

	result.Success = true
	result.Tracks = []models.Track{track}
	result.Warnings = warnings.Messages()
	return result, nil
}

type meridianHeader struct {
	device     models.DeviceType
	serial     string
	fwMajor    uint8
	fwMinor    uint8
	name       string
	startSec   uint32
	endSec     uint32
	sampleRate uint8
	pointCount uint32
}

func readMeridianHeader(r *byteReader) (*meridianHeader, error) {
	var hdr meridianHeader

	code, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	hdr.device = meridianDevices[code]
	if hdr.device == "" {
		hdr.device = models.DeviceUnknown
	}
	if hdr.serial, err = r.CString(meridianSerialWidth); err != nil {
		return nil, err
	}
	if hdr.fwMajor, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if hdr.fwMinor, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if hdr.name, err = r.CString(meridianNameWidth); err != nil {
		return nil, err
	}
	if hdr.startSec, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if hdr.endSec, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if hdr.sampleRate, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if hdr.pointCount, err = r.ReadU32(); err != nil {
		return nil, err
	}
	return &hdr, nil
}

func readMeridianPoint(r *byteReader) (models.TrackPoint, error) {
	var pt models.TrackPoint

	ts, err := r.ReadU32()
	if err != nil {
		return pt, err
	}
	latMicro, err := r.ReadI32()
	if err != nil {
		return pt, err
	}
	lngMicro, err := r.ReadI32()
	if err != nil {
		return pt, err
	}
	speed, err := r.ReadU16()
	if err != nil {
		return pt, err
	}
	heading, err := r.ReadU16()
	if err != nil {
		return pt, err
	}
	cog, err := r.ReadU16()
	if err != nil {
		return pt, err
	}
	hdop, err := r.ReadU16()
	if err != nil {
		return pt, err
	}
	sats, err := r.ReadU8()
	if err != nil {
		return pt, err
	}
	alt, err := r.ReadI16()
	if err != nil {
		return pt, err
	}
	battery, err := r.ReadU16()
	if err != nil {
		return pt, err
	}
	if err := r.Skip(3); err != nil { // reserved
		return pt, err
	}

	pt.TimestampMS = int64(ts) * 1000
	pt.Lat = float64(latMicro) / 1e6
	pt.Lng = float64(lngMicro) / 1e6
	pt.SpeedKn = models.Float64Ptr(float64(speed) * 0.01)
	pt.HeadingDeg = models.Float64Ptr(float64(heading) * 0.01)
	pt.COGDeg = models.Float64Ptr(float64(cog) * 0.01)
	pt.HDOP = models.Float64Ptr(float64(hdop) * 0.01)
	pt.Satellites = models.IntPtr(int(sats))
	pt.AltitudeM = models.Float64Ptr(float64(alt))
	pt.BatteryV = models.Float64Ptr(float64(battery) * 0.01)
	return pt, nil
}

// fail finalizes a rejected result: Success stays false, the error message is
// mirrored into the envelope, and the typed error is returned for errors.As.
func fail(result *models.DecodeResult, err error) (*models.DecodeResult, error) {
	result.Success = false
	result.Tracks = []models.Track{}
	result.Errors = append(result.Errors, err.Error())

	var formatErr *FormatError
	var dataErr *DataError
	switch {
	case errors.As(err, &formatErr):
		logging.Warn("import rejected", "format", formatErr.Format, "reason", formatErr.Message)
	case errors.As(err, &dataErr):
		logging.Warn("import rejected", "format", dataErr.Format, "reason", dataErr.Message)
	}
	return result, err
}
