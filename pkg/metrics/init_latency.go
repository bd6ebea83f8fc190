package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLatencyMetrics() {
	r.PathSearchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trace_analysis_path_searches_total",
			Help: "Total number of path searches executed",
		},
		[]string{"status"},
	)

	r.PathSearchDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trace_analysis_path_search_duration_seconds",
			Help:    "Path search duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	r.ComposeTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trace_analysis_compose_total",
			Help: "Total number of latency compositions, by edge type",
		},
		[]string{"edge_type", "status"},
	)

	r.ComposeDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trace_analysis_compose_duration_seconds",
			Help:    "Latency composition duration in seconds, by edge type",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"edge_type"},
	)

	r.ComposeCacheHits = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "trace_analysis_compose_cache_hits_total",
			Help: "Composed edge record tables served from the cache",
		},
	)

	r.ComposeCacheMisses = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "trace_analysis_compose_cache_misses_total",
			Help: "Composed edge record tables built from instance data",
		},
	)

	r.DroppedTraversals = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "trace_analysis_dropped_traversals_total",
			Help: "Path traversals dropped from statistics as incomplete",
		},
	)
}
