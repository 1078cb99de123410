package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/regattaflow/trackcore/internal/decoder"
	"github.com/regattaflow/trackcore/internal/logging"
	"github.com/regattaflow/trackcore/internal/middleware"
	"github.com/regattaflow/trackcore/internal/models"
)

// maxTrackUploadBytes bounds decode request bodies. The largest known logger
// export (a full day of 2 Hz samples) stays well under this.
const maxTrackUploadBytes = 32 << 20

// DecodeTrackHandler handles POST /api/v1/tracks/decode
//
// @Summary      Decode an uploaded track file
// @Description  Decodes a raw track export (Meridian binary/CSV, GPX, NMEA) into normalized tracks.
// @Tags         Tracks
// @Accept       octet-stream
// @Produce      json
// @Param        format  query    string  false  "Source format (meridian, meridian-csv, gpx, nmea); omit for auto-detection"
// @Success      200     {object} models.APIResponse[models.DecodeResult]
// @Failure      400,413,422 {object} models.APIResponse[models.DecodeResult]
// @Router       /api/v1/tracks/decode [post]
func DecodeTrackHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxTrackUploadBytes)
		data, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondWithError(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("track file exceeds %d bytes", tooLarge.Limit))
				return
			}
			respondWithError(w, http.StatusBadRequest, "could not read request body")
			return
		}
		if len(data) == 0 {
			respondWithError(w, http.StatusBadRequest, "empty request body")
			return
		}

		format := models.SourceFormat(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))))

		start := time.Now()
		result, decodeErr := decoder.Decode(data, format)
		elapsed := time.Since(start)
		deps.Metrics.ObserveDecode(result, elapsed)

		requestID := middleware.RequestIDFromContext(r.Context())
		if decodeErr != nil {
			logging.Warn("track decode rejected",
				"request_id", requestID,
				"format", string(result.SourceFormat),
				"bytes", len(data),
				"error", decodeErr,
			)
			respondWithErrorData(w, http.StatusUnprocessableEntity, decodeErr.Error(), result)
			return
		}

		points := 0
		for i := range result.Tracks {
			points += len(result.Tracks[i].Points)
		}
		logging.Info("track decoded",
			"request_id", requestID,
			"format", string(result.SourceFormat),
			"device", string(result.DeviceType),
			"tracks", len(result.Tracks),
			"points", points,
			"warnings", len(result.Warnings),
			"elapsed_ms", elapsed.Milliseconds(),
		)
		respondWithSuccess(w, http.StatusOK, result)
	}
}

// DecodeFormatsHandler handles GET /api/v1/tracks/formats
//
// @Summary  List supported track formats
// @Tags     Tracks
// @Produce  json
// @Success  200 {object} models.APIResponse[[]models.SourceFormat]
// @Router   /api/v1/tracks/formats [get]
func DecodeFormatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formats := decoder.SupportedFormats()
		respondWithSuccess(w, http.StatusOK, &formats)
	}
}
