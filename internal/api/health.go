package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/regattaflow/trackcore/internal/live"
	"github.com/regattaflow/trackcore/internal/models"
)

// HealthCheckHandler handles GET /healthCheck
//
// @Summary Health check
// @Description Reports uptime and the live feed session state.
// @Tags Misc
// @Success 200 {object} models.HealthCheckResponse
// @Router /healthCheck [get]
func HealthCheckHandler(liveClient *live.Client, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		services := make(map[string]models.ServiceStatus)

		// The live feed is an optional upstream: its state is reported, but a
		// disconnected or erroring session never fails the health check.
		sessionStatus := liveClient.Status()
		details := "no active session"
		if eventID, raceID, active := liveClient.Session(); active {
			details = fmt.Sprintf("event=%s race=%s", eventID, raceID)
		}
		services["live_feed"] = models.ServiceStatus{
			Status:  string(sessionStatus),
			Details: details,
		}

		uptime := time.Since(upSince).Round(time.Second).String()

		resp := models.HealthCheckResponse{
			Status:   "ok",
			Uptime:   uptime,
			Services: services,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
