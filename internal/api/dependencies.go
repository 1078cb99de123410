package api

import (
	"time"

	"github.com/regattaflow/trackcore/internal/cache"
	"github.com/regattaflow/trackcore/internal/config"
	"github.com/regattaflow/trackcore/internal/live"
	"github.com/regattaflow/trackcore/internal/metrics"
)

// Services groups the long-lived service singletons handlers depend on.
type Services struct {
	Cache cache.Cache
	Rest  *live.RestClient
	Live  *live.Client
}

// Dependencies is the handler dependency container, built once at startup and
// threaded through route registration.
type Dependencies struct {
	Cfg      *config.Config
	Metrics  *metrics.MetricsRegistry
	Services *Services
	UpSince  time.Time
}

// InitDependencies wires the service graph: lookup cache, REST accessors for
// the live feed, and the streaming client with its polling fallback.
func InitDependencies(cfg *config.Config, metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {
	cacheSvc := cache.NewService(cfg.Live.LookupCacheSec, cfg.Live.LookupCacheSec*2)

	restClient := live.NewRestClient(
		cfg.Live.BaseURL,
		cfg.Live.APIKey,
		time.Duration(cfg.Live.RequestTimeoutMS)*time.Millisecond,
		cacheSvc,
		time.Duration(cfg.Live.LookupCacheSec)*time.Second,
	)

	liveClient := live.NewClient(live.Options{
		Config:  live.ClientConfigFrom(cfg.Live),
		Rest:    restClient,
		Metrics: metricsReg,
	})

	return &Dependencies{
		Cfg:     cfg,
		Metrics: metricsReg,
		Services: &Services{
			Cache: cacheSvc,
			Rest:  restClient,
			Live:  liveClient,
		},
		UpSince: time.Now(),
	}, nil
}
