package decoder

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/regattaflow/trackcore/internal/models"
)

const (
	nmeaFixA    = "$GPRMC,180000,A,3648.000,N,12200.000,W,5.2,183.0,040524,004.2,W*7B"
	nmeaFixB    = "$GPRMC,180100,A,3648.060,N,12200.000,W,5.4,1.0,040524,004.2,W*71"
	nmeaGGA     = "$GPGGA,180030,3648.000,N,12200.000,W,1,10,1.2,5.0,M,46.9,M,,*5E"
	nmeaVoidFix = "$GPRMC,180200,V,3648.120,N,12200.000,W,0.0,0.0,040524,004.2,W*60"
	nmeaVTG     = "$GPVTG,183.0,T,179.0,M,5.2,N,9.6,K*43"
)

func TestDecodeNMEA_RMCFixesWithGGAEnrichment(t *testing.T) {
	log := strings.Join([]string{nmeaFixA, nmeaGGA, nmeaFixB}, "\n")

	result, err := DecodeNMEA([]byte(log))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if result.SourceFormat != models.FormatNMEA {
		t.Errorf("source format = %s", result.SourceFormat)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}

	track := result.Tracks[0]
	if track.Name != "NMEA import" {
		t.Errorf("name = %q", track.Name)
	}
	points := track.Points
	if len(points) != 2 {
		t.Fatalf("fixes = %d, want 2", len(points))
	}

	first := points[0]
	if math.Abs(first.Lat-36.8) > 1e-9 || first.Lng != -122.0 {
		t.Errorf("coordinates = %v,%v", first.Lat, first.Lng)
	}
	if first.TimestampMS != 1714845600000 {
		t.Errorf("timestamp = %d", first.TimestampMS)
	}
	if first.SpeedKn == nil || *first.SpeedKn != 5.2 {
		t.Errorf("sog = %v", first.SpeedKn)
	}
	if first.COGDeg == nil || *first.COGDeg != 183.0 {
		t.Errorf("cog = %v", first.COGDeg)
	}
	if first.AltitudeM != nil || first.HDOP != nil || first.Satellites != nil {
		t.Errorf("fix before any GGA must not carry GGA fields: %+v", first)
	}

	second := points[1]
	if math.Abs(second.Lat-36.801) > 1e-9 {
		t.Errorf("lat = %v, want 36.801", second.Lat)
	}
	if second.TimestampMS != 1714845660000 {
		t.Errorf("timestamp = %d", second.TimestampMS)
	}
	if second.AltitudeM == nil || *second.AltitudeM != 5.0 {
		t.Errorf("altitude = %v, want the preceding GGA value", second.AltitudeM)
	}
	if second.HDOP == nil || *second.HDOP != 1.2 {
		t.Errorf("hdop = %v", second.HDOP)
	}
	if second.Satellites == nil || *second.Satellites != 10 {
		t.Errorf("satellites = %v", second.Satellites)
	}

	if track.StartTimeMS != 1714845600000 || track.EndTimeMS != 1714845660000 {
		t.Errorf("window = %d..%d", track.StartTimeMS, track.EndTimeMS)
	}
}

func TestDecodeNMEA_VoidFixSkipped(t *testing.T) {
	log := nmeaFixA + "\n" + nmeaVoidFix + "\n"

	result, err := DecodeNMEA([]byte(log))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(result.Tracks[0].Points) != 1 {
		t.Fatalf("fixes = %d, want the void one dropped", len(result.Tracks[0].Points))
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v", result.Warnings)
	}
	if result.Warnings[0] != "void fix skipped (line 2)" {
		t.Errorf("warning = %q", result.Warnings[0])
	}
}

func TestDecodeNMEA_UnparsableSentenceWarns(t *testing.T) {
	badChecksum := "$GPRMC,180000,A,3648.000,N,12200.000,W,5.2,183.0,040524,004.2,W*00"
	log := nmeaFixA + "\n" + badChecksum + "\n"

	result, err := DecodeNMEA([]byte(log))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(result.Tracks[0].Points) != 1 {
		t.Errorf("fixes = %d", len(result.Tracks[0].Points))
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "unparsable sentence") {
		t.Errorf("warnings = %v", result.Warnings)
	}
}

func TestDecodeNMEA_IgnoresOtherSentencesAndJunkLines(t *testing.T) {
	log := strings.Join([]string{
		"# exported 2024-05-04",
		nmeaVTG,
		"",
		nmeaFixA,
	}, "\n")

	result, err := DecodeNMEA([]byte(log))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(result.Tracks[0].Points) != 1 {
		t.Errorf("fixes = %d, want 1", len(result.Tracks[0].Points))
	}
	if len(result.Warnings) != 0 {
		t.Errorf("comment and VTG lines must not warn: %v", result.Warnings)
	}
}

func TestDecodeNMEA_NoValidFixes(t *testing.T) {
	for _, input := range []string{
		"",
		nmeaGGA,
		nmeaVoidFix,
	} {
		result, err := DecodeNMEA([]byte(input))
		var dataErr *DataError
		if !errors.As(err, &dataErr) {
			t.Fatalf("input %q: expected DataError, got %v", input, err)
		}
		if !strings.Contains(dataErr.Message, "no valid RMC fixes") {
			t.Errorf("message = %s", dataErr.Message)
		}
		if result.Success {
			t.Errorf("input %q must not succeed", input)
		}
	}
}
