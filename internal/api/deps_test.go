package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/regattaflow/trackcore/internal/cache"
	"github.com/regattaflow/trackcore/internal/config"
	"github.com/regattaflow/trackcore/internal/live"
	"github.com/regattaflow/trackcore/internal/metrics"
)

// Prometheus collectors register against the process-global registry, so the
// whole test binary shares one instance.
var (
	registryOnce sync.Once
	registry     *metrics.MetricsRegistry
)

func testMetrics() *metrics.MetricsRegistry {
	registryOnce.Do(func() { registry = metrics.NewMetricsRegistry() })
	return registry
}

// stubTransport never completes a dial. Handler tests drive the live client
// only through Connect/Disconnect and the snapshot accessors.
type stubTransport struct{}

func (stubTransport) Dial(ctx context.Context, url string, header http.Header) (live.StreamConn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func testDeps(restBaseURL string) *Dependencies {
	cfg := &config.Config{}
	cfg.AppEnv = "test"
	cfg.Server.Port = 8080
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Server.RateLimitPerSec = 100
	cfg.Server.RateLimitBurst = 100

	rest := live.NewRestClient(restBaseURL, "", 2*time.Second, nil, 0)
	client := live.NewClient(live.Options{
		Config: live.ClientConfig{
			StreamURL:     "ws://stub.invalid/stream",
			MaxReconnects: 1,
			ReconnectBase: time.Millisecond,
			PollInterval:  time.Hour,
		},
		Transport: stubTransport{},
		Rest:      rest,
		Metrics:   testMetrics(),
	})

	return &Dependencies{
		Cfg:     cfg,
		Metrics: testMetrics(),
		Services: &Services{
			Cache: cache.NewService(60, 120),
			Rest:  rest,
			Live:  client,
		},
		UpSince: time.Now(),
	}
}
