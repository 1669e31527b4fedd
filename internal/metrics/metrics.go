package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	Runs           *prometheus.CounterVec // operation, status
	RunDurationSec *prometheus.HistogramVec
	MatchOutcomes  *prometheus.CounterVec // outcome
	CellsWritten   *prometheus.CounterVec // operation
	FormatFailures *prometheus.CounterVec // operation
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fletes_runs_total"}, []string{"operation", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fletes_run_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fletes_match_outcomes_total"}, []string{"outcome"})
	written := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fletes_cells_written_total"}, []string{"operation"})
	formatFailures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "fletes_format_failures_total"}, []string{"operation"})
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "fletes_cache_hits_total"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "fletes_cache_misses_total"})

	r.MustRegister(runs, duration, outcomes, written, formatFailures, hits, misses)
	return &Registry{
		reg:            r,
		Runs:           runs,
		RunDurationSec: duration,
		MatchOutcomes:  outcomes,
		CellsWritten:   written,
		FormatFailures: formatFailures,
		CacheHits:      hits,
		CacheMisses:    misses,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
