package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/regattaflow/trackcore/internal/models"
)

// MetricsRegistry holds all Prometheus metrics for the trackcore service
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    prometheus.CounterVec
	HTTPRequestDuration  prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.GaugeVec

	// Decode Metrics
	DecodesTotal   prometheus.CounterVec
	DecodeDuration prometheus.HistogramVec
	PointsDecoded  prometheus.CounterVec
	DecodeWarnings prometheus.CounterVec

	// Live Feed Metrics
	LiveMessagesTotal   prometheus.CounterVec
	LiveReconnectsTotal prometheus.Counter
	LivePollEventsTotal prometheus.Counter
	LiveBoats           prometheus.Gauge
}

// NewMetricsRegistry initializes and returns a new MetricsRegistry with all metrics
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackcore_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trackcore_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trackcore_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Decode Metrics
		DecodesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackcore_decodes_total",
				Help: "Total track decode attempts by source format and outcome",
			},
			[]string{"format", "outcome"},
		),
		DecodeDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trackcore_decode_duration_seconds",
				Help:    "Track decode execution time in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"format"},
		),
		PointsDecoded: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackcore_points_decoded_total",
				Help: "Total track points produced by source format",
			},
			[]string{"format"},
		),
		DecodeWarnings: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackcore_decode_warnings_total",
				Help: "Total decode warnings by source format",
			},
			[]string{"format"},
		),

		// Live Feed Metrics
		LiveMessagesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackcore_live_messages_total",
				Help: "Total live feed messages handled by message type",
			},
			[]string{"type"},
		),
		LiveReconnectsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trackcore_live_reconnects_total",
				Help: "Total live stream reconnect attempts",
			},
		),
		LivePollEventsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trackcore_live_poll_events_total",
				Help: "Total position updates synthesized from REST polling fallback",
			},
		),
		LiveBoats: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "trackcore_live_boats",
				Help: "Current number of boats in the live cache",
			},
		),
	}
}

// ObserveDecode records one decode attempt: outcome counter, latency, points
// produced, and warnings raised. Safe to call on a nil registry so code paths
// without metrics wiring need no guards.
func (m *MetricsRegistry) ObserveDecode(result *models.DecodeResult, elapsed time.Duration) {
	if m == nil || result == nil {
		return
	}

	format := string(result.SourceFormat)
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}

	m.DecodesTotal.WithLabelValues(format, outcome).Inc()
	m.DecodeDuration.WithLabelValues(format).Observe(elapsed.Seconds())

	points := 0
	for i := range result.Tracks {
		points += len(result.Tracks[i].Points)
	}
	if points > 0 {
		m.PointsDecoded.WithLabelValues(format).Add(float64(points))
	}
	if n := len(result.Warnings); n > 0 {
		m.DecodeWarnings.WithLabelValues(format).Add(float64(n))
	}
}
