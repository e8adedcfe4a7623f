// Package telemetry exposes the AIMD strategy's live tuning state as
// prometheus gauges, a supplemental observability surface with no
// bearing on any indexing, upload, retrieval, or enhancement behavior.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ctxmcp/ctxmcp/internal/strategy"
)

// Registry owns the four strategy gauges and the /metrics handler.
type Registry struct {
	concurrency prometheus.Gauge
	timeoutMs   prometheus.Gauge
	successRate prometheus.Gauge
	ewmaLatency prometheus.Gauge
	registerer  *prometheus.Registry
}

// NewRegistry builds a fresh, unregistered-with-the-default-registerer
// gauge set so multiple Registry instances (e.g. across tests) never
// collide on prometheus's global registry.
func NewRegistry() *Registry {
	r := &Registry{
		registerer: prometheus.NewRegistry(),
		concurrency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ctxmcp_strategy_concurrency",
			Help: "Current AIMD upload concurrency.",
		}),
		timeoutMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ctxmcp_strategy_timeout_ms",
			Help: "Current per-batch upload timeout in milliseconds.",
		}),
		successRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ctxmcp_strategy_success_rate",
			Help: "Success rate over the metrics window.",
		}),
		ewmaLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ctxmcp_strategy_ewma_latency_ms",
			Help: "EWMA-smoothed upload latency in milliseconds.",
		}),
	}
	r.registerer.MustRegister(r.concurrency, r.timeoutMs, r.successRate, r.ewmaLatency)
	return r
}

// Observe snapshots an Adaptive strategy's current tuning state into
// the gauges. Call this after every strategy.Adaptive.RecordOutcome.
func (r *Registry) Observe(s *strategy.Adaptive) {
	r.concurrency.Set(float64(s.Concurrency()))
	r.timeoutMs.Set(float64(s.TimeoutMs()))
	r.successRate.Set(s.Window().SuccessRate())
	r.ewmaLatency.Set(s.Window().EWMALatencyMs())
}

// Handler returns the promhttp handler serving this registry's gauges.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registerer, promhttp.HandlerOpts{})
}
