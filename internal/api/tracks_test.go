package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/regattaflow/trackcore/internal/models"
)

const testGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="Velocitek Control Center">
  <trk>
    <name>Race 1</name>
    <trkseg>
      <trkpt lat="36.8000" lon="-122.0000"><time>2024-05-04T18:00:00Z</time></trkpt>
      <trkpt lat="36.8010" lon="-122.0000"><time>2024-05-04T18:01:00Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestDecodeTrackHandler_AutoDetectGPX(t *testing.T) {
	handler := DecodeTrackHandler(testDeps("http://unused.invalid"))

	req := httptest.NewRequest("POST", "/api/v1/tracks/decode", strings.NewReader(testGPX))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response models.APIResponse[models.DecodeResult]
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("Expected status ok, got %s", response.Status)
	}
	if response.Data == nil || !response.Data.Success {
		t.Fatalf("Expected successful envelope, got %+v", response.Data)
	}
	if response.Data.SourceFormat != models.FormatGPX {
		t.Errorf("Expected gpx source format, got %s", response.Data.SourceFormat)
	}
	if len(response.Data.Tracks) != 1 || len(response.Data.Tracks[0].Points) != 2 {
		t.Errorf("Unexpected track shape: %+v", response.Data.Tracks)
	}
}

func TestDecodeTrackHandler_ExplicitFormat(t *testing.T) {
	handler := DecodeTrackHandler(testDeps("http://unused.invalid"))

	csv := "Lat,Lon,Speed,Time\n36.8,-122.0,5.2,2024-05-04T18:00:00Z\n36.81,-122.0,5.4,2024-05-04T18:00:01Z\n"
	req := httptest.NewRequest("POST", "/api/v1/tracks/decode?format=meridian-csv", strings.NewReader(csv))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response models.APIResponse[models.DecodeResult]
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Data.SourceFormat != models.FormatMeridianCSV {
		t.Errorf("Expected meridian-csv, got %s", response.Data.SourceFormat)
	}
}

func TestDecodeTrackHandler_UnrecognizedInput(t *testing.T) {
	handler := DecodeTrackHandler(testDeps("http://unused.invalid"))

	req := httptest.NewRequest("POST", "/api/v1/tracks/decode", bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", rr.Code)
	}

	var response models.APIResponse[models.DecodeResult]
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != "error" {
		t.Errorf("Expected status error, got %s", response.Status)
	}
	if response.Error == "" {
		t.Error("Expected an error message")
	}
	// The rejection still carries the envelope with its error list.
	if response.Data == nil || response.Data.Success || len(response.Data.Errors) == 0 {
		t.Errorf("Expected failure envelope in data, got %+v", response.Data)
	}
}

func TestDecodeTrackHandler_EmptyBody(t *testing.T) {
	handler := DecodeTrackHandler(testDeps("http://unused.invalid"))

	req := httptest.NewRequest("POST", "/api/v1/tracks/decode", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestDecodeFormatsHandler(t *testing.T) {
	handler := DecodeFormatsHandler()

	req := httptest.NewRequest("GET", "/api/v1/tracks/formats", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var response models.APIResponse[[]models.SourceFormat]
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	found := false
	for _, f := range *response.Data {
		if f == models.FormatAuto {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected auto in supported formats, got %v", *response.Data)
	}
}
