package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/regattaflow/trackcore/internal/api"
	"github.com/regattaflow/trackcore/internal/middleware"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
// This keeps API route registration separate from the main router setup
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies) {

	r.Route("/api/v1", func(v1 chi.Router) {

		// Decode uploads carry whole track files; they sit behind the
		// per-IP rate limiter.
		v1.Group(func(tracks chi.Router) {
			tracks.Use(middleware.RateLimitMiddleware(
				deps.Cfg.Server.RateLimitPerSec,
				deps.Cfg.Server.RateLimitBurst,
			))
			tracks.Post("/tracks/decode", api.DecodeTrackHandler(deps))
		})
		v1.Get("/tracks/formats", api.DecodeFormatsHandler())

		v1.Route("/live", func(lv chi.Router) {
			lv.Get("/status", api.LiveStatusHandler(deps))
			lv.Post("/connect", api.LiveConnectHandler(deps))
			lv.Post("/disconnect", api.LiveDisconnectHandler(deps))
			lv.Get("/boats", api.LiveBoatsHandler(deps))
			lv.Get("/boats/{boat_id}", api.LiveBoatHandler(deps))

			// Feed lookups proxied through the REST accessors.
			lv.Route("/events/{event_id}", func(ev chi.Router) {
				ev.Get("/", api.LiveEventHandler(deps))
				ev.Get("/races", api.LiveEventRacesHandler(deps))
				ev.Get("/boats", api.LiveEventBoatsHandler(deps))
				ev.Get("/races/{race_id}/boats", api.LiveEventBoatsHandler(deps))
				ev.Get("/races/{race_id}/boats/{boat_id}/history", api.LiveTrackHistoryHandler(deps))
			})
		})
	})
}
