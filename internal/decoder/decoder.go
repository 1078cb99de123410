// Package decoder turns exported GPS track files (Meridian binary and CSV,
// GPX, NMEA logs) into normalized tracks. Decoders never panic on arbitrary
// input: malformed containers yield a FormatError, well-formed containers
// with no usable points a DataError, and recoverable row-level problems are
// collected as warnings on the result envelope.
package decoder

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/regattaflow/trackcore/internal/models"
)

type decodeFunc func(data []byte) (*models.DecodeResult, error)

// registry routes declared source formats. FormatAuto is handled separately
// by sniffing; it is not a registry entry.
var registry = map[models.SourceFormat]decodeFunc{
	models.FormatMeridian:    DecodeMeridian,
	models.FormatMeridianCSV: DecodeMeridianCSV,
	models.FormatGPX:         DecodeGPX,
	models.FormatNMEA:        DecodeNMEA,
}

// SupportedFormats lists the formats Decode accepts, auto included.
func SupportedFormats() []models.SourceFormat {
	return []models.SourceFormat{
		models.FormatMeridian,
		models.FormatMeridianCSV,
		models.FormatGPX,
		models.FormatNMEA,
		models.FormatAuto,
	}
}

// Decode decodes data according to format. FormatAuto (or empty) sniffs the
// payload first. The returned error is non-nil exactly when the result's
// Success field is false, and mirrors its first Errors entry.
func Decode(data []byte, format models.SourceFormat) (*models.DecodeResult, error) {
	if format == models.FormatAuto || format == "" {
		detected, ok := DetectFormat(data)
		if !ok {
			result := &models.DecodeResult{SourceFormat: models.FormatAuto}
			return fail(result, &FormatError{
				Format:  models.FormatAuto,
				Message: fmt.Sprintf("unrecognized input; supported formats: %v", SupportedFormats()),
			})
		}
		format = detected
	}

	decode, ok := registry[format]
	if !ok {
		result := &models.DecodeResult{SourceFormat: format}
		return fail(result, &FormatError{
			Format:  format,
			Message: fmt.Sprintf("unknown format %q; supported formats: %v", format, SupportedFormats()),
		})
	}
	return decode(data)
}

// DetectFormat sniffs the payload shape without fully parsing it.
func DetectFormat(data []byte) (models.SourceFormat, bool) {
	trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	switch {
	case bytes.HasPrefix(data, []byte(meridianMagic)):
		return models.FormatMeridian, true
	case len(trimmed) > 0 && trimmed[0] == '<' && bytes.Contains(trimmed, []byte("<gpx")):
		return models.FormatGPX, true
	case looksLikeNMEA(trimmed):
		return models.FormatNMEA, true
	case looksLikeTrackCSV(trimmed):
		return models.FormatMeridianCSV, true
	}
	return "", false
}

// looksLikeNMEA checks the first non-blank line for the $TALKER,...*hh shape.
func looksLikeNMEA(data []byte) bool {
	line := firstLine(data)
	if len(line) < 9 || line[0] != '$' {
		return false
	}
	star := strings.LastIndexByte(line, '*')
	return star > 0 && len(line)-star == 3 && strings.IndexByte(line, ',') > 0
}

// looksLikeTrackCSV checks the first line for a comma-separated header that
// names at least one latitude and one longitude synonym.
func looksLikeTrackCSV(data []byte) bool {
	line := firstLine(data)
	if !strings.Contains(line, ",") {
		return false
	}
	var hasLat, hasLng bool
	for _, cell := range strings.Split(line, ",") {
		switch csvColumns[strings.ToLower(strings.TrimSpace(cell))] {
		case "lat":
			hasLat = true
		case "lng":
			hasLng = true
		}
	}
	return hasLat && hasLng
}

func firstLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	return strings.TrimSpace(string(data))
}
