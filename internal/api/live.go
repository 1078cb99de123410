package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/regattaflow/trackcore/internal/models"
)

// LiveBoatsHandler handles GET /api/v1/live/boats
//
// @Summary  Snapshot of all boats in the live session
// @Tags     Live
// @Produce  json
// @Success  200 {object} models.APIResponse[[]models.LiveBoat]
// @Router   /api/v1/live/boats [get]
func LiveBoatsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boats := deps.Services.Live.GetBoatPositions()
		respondWithSuccess(w, http.StatusOK, &boats)
	}
}

// LiveBoatHandler handles GET /api/v1/live/boats/{boat_id}
//
// @Summary  Snapshot of one boat in the live session
// @Tags     Live
// @Produce  json
// @Success  200 {object} models.APIResponse[models.LiveBoat]
// @Failure  404 {object} models.APIResponse[any]
// @Router   /api/v1/live/boats/{boat_id} [get]
func LiveBoatHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boatID := chi.URLParam(r, "boat_id")
		boat, ok := deps.Services.Live.GetBoatPosition(boatID)
		if !ok {
			respondWithError(w, http.StatusNotFound, "boat not seen in this session")
			return
		}
		respondWithSuccess(w, http.StatusOK, &boat)
	}
}

// LiveStatusHandler handles GET /api/v1/live/status
//
// @Summary  Live session status
// @Tags     Live
// @Produce  json
// @Success  200 {object} models.APIResponse[models.LiveStatusResponse]
// @Router   /api/v1/live/status [get]
func LiveStatusHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client := deps.Services.Live
		eventID, raceID, active := client.Session()
		status := models.LiveStatusResponse{
			Status:  client.Status(),
			EventID: eventID,
			RaceID:  raceID,
			Active:  active,
			Boats:   len(client.GetBoatPositions()),
		}
		respondWithSuccess(w, http.StatusOK, &status)
	}
}

// LiveConnectHandler handles POST /api/v1/live/connect
//
// @Summary      Start a live tracking session
// @Description  Opens the stream for an event (optionally scoped to a race). Only one session runs at a time.
// @Tags         Live
// @Accept       json
// @Produce      json
// @Success      202 {object} models.APIResponse[models.LiveStatusResponse]
// @Failure      400,409 {object} models.APIResponse[any]
// @Router       /api/v1/live/connect [post]
func LiveConnectHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ConnectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.EventID == "" {
			respondWithError(w, http.StatusBadRequest, "eventId is required")
			return
		}

		if err := deps.Services.Live.Connect(req.EventID, req.RaceID); err != nil {
			respondWithError(w, http.StatusConflict, err.Error())
			return
		}

		status := models.LiveStatusResponse{
			Status:  deps.Services.Live.Status(),
			EventID: req.EventID,
			RaceID:  req.RaceID,
			Active:  true,
		}
		respondWithSuccess(w, http.StatusAccepted, &status)
	}
}

// LiveDisconnectHandler handles POST /api/v1/live/disconnect
//
// @Summary  End the live tracking session
// @Tags     Live
// @Produce  json
// @Success  200 {object} models.APIResponse[models.LiveStatusResponse]
// @Router   /api/v1/live/disconnect [post]
func LiveDisconnectHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Services.Live.Disconnect()
		status := models.LiveStatusResponse{Status: deps.Services.Live.Status()}
		respondWithSuccess(w, http.StatusOK, &status)
	}
}

// LiveEventHandler handles GET /api/v1/live/events/{event_id}
//
// @Summary  Event details from the live feed
// @Tags     Live
// @Produce  json
// @Success  200 {object} models.APIResponse[models.RaceEvent]
// @Failure  404 {object} models.APIResponse[any]
// @Router   /api/v1/live/events/{event_id} [get]
func LiveEventHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "event_id")
		event := deps.Services.Rest.GetEvent(r.Context(), eventID)
		if event == nil {
			respondWithError(w, http.StatusNotFound, "event not available")
			return
		}
		respondWithSuccess(w, http.StatusOK, event)
	}
}

// LiveEventRacesHandler handles GET /api/v1/live/events/{event_id}/races
//
// @Summary  Races of an event from the live feed
// @Tags     Live
// @Produce  json
// @Success  200 {object} models.APIResponse[[]models.Race]
// @Router   /api/v1/live/events/{event_id}/races [get]
func LiveEventRacesHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "event_id")
		races := deps.Services.Rest.GetRaces(r.Context(), eventID)
		if races == nil {
			races = []models.Race{}
		}
		respondWithSuccess(w, http.StatusOK, &races)
	}
}

// LiveEventBoatsHandler handles GET /api/v1/live/events/{event_id}/boats and
// the race-scoped variant.
//
// @Summary  Boat snapshots of an event from the live feed
// @Tags     Live
// @Produce  json
// @Success  200 {object} models.APIResponse[[]models.BoatEntry]
// @Router   /api/v1/live/events/{event_id}/boats [get]
func LiveEventBoatsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "event_id")
		raceID := chi.URLParam(r, "race_id")
		boats := deps.Services.Rest.GetBoats(r.Context(), eventID, raceID)
		if boats == nil {
			boats = []models.BoatEntry{}
		}
		respondWithSuccess(w, http.StatusOK, &boats)
	}
}

// LiveTrackHistoryHandler handles
// GET /api/v1/live/events/{event_id}/races/{race_id}/boats/{boat_id}/history
//
// @Summary  Feed-recorded track history for one boat
// @Tags     Live
// @Produce  json
// @Success  200 {object} models.APIResponse[models.TrackHistory]
// @Failure  404 {object} models.APIResponse[any]
// @Router   /api/v1/live/events/{event_id}/races/{race_id}/boats/{boat_id}/history [get]
func LiveTrackHistoryHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "event_id")
		raceID := chi.URLParam(r, "race_id")
		boatID := chi.URLParam(r, "boat_id")
		history := deps.Services.Rest.GetTrackHistory(r.Context(), eventID, raceID, boatID)
		if history == nil {
			respondWithError(w, http.StatusNotFound, "history not available")
			return
		}
		respondWithSuccess(w, http.StatusOK, history)
	}
}
