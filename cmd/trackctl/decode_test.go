package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/regattaflow/trackcore/internal/models"
)

func TestDecodeFileWritesEnvelope(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "morning.csv")
	csv := "Lat,Lon,Time\n36.8,-122.0,1714845600\n36.801,-122.0,1714845660\n"
	if err := os.WriteFile(src, []byte(csv), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		t.Fatalf("create out dir: %v", err)
	}
	decodeOut = outDir
	defer func() { decodeOut = "" }()

	outcome := decodeFile(src, models.FormatAuto)
	if outcome.err != nil {
		t.Fatalf("decodeFile returned error: %v", outcome.err)
	}
	if outcome.result == nil || !outcome.result.Success {
		t.Fatalf("expected successful decode, got %+v", outcome.result)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "morning.csv.json"))
	if err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	var envelope models.DecodeResult
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("envelope is not valid JSON: %v", err)
	}
	if !envelope.Success {
		t.Error("envelope Success = false, want true")
	}
	if envelope.SourceFormat != models.FormatMeridianCSV {
		t.Errorf("envelope SourceFormat = %q, want %q", envelope.SourceFormat, models.FormatMeridianCSV)
	}
	if len(envelope.Tracks) != 1 {
		t.Fatalf("envelope has %d tracks, want 1", len(envelope.Tracks))
	}
	if got := len(envelope.Tracks[0].Points); got != 2 {
		t.Errorf("envelope track has %d points, want 2", got)
	}
}

func TestDecodeFileMissingFile(t *testing.T) {
	outcome := decodeFile(filepath.Join(t.TempDir(), "absent.gpx"), models.FormatAuto)
	if outcome.err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDecodeFileRejectsGarbage(t *testing.T) {
	src := filepath.Join(t.TempDir(), "noise.bin")
	if err := os.WriteFile(src, []byte("\x00\x01\x02 not a track"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	outcome := decodeFile(src, models.FormatAuto)
	if outcome.err == nil {
		t.Fatal("expected error for unrecognized input")
	}
	if outcome.result == nil || outcome.result.Success {
		t.Fatalf("expected failed envelope, got %+v", outcome.result)
	}
}
