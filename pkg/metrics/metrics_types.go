package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Processor Metrics
	EventsProcessedTotal  *prometheus.CounterVec
	UnknownEventsTotal    prometheus.Counter
	AmbiguousHandlesTotal *prometheus.CounterVec
	OpenInstances         prometheus.Gauge
	CallbackInstances     prometheus.Gauge

	// Architecture Metrics
	GraphNodes            prometheus.Gauge
	GraphCallbacks        prometheus.Gauge
	GraphCommunications   prometheus.Gauge
	GraphVariablePassings prometheus.Gauge

	// Path / Latency Metrics
	PathSearchesTotal   *prometheus.CounterVec
	PathSearchDuration  prometheus.Histogram
	ComposeTotal        *prometheus.CounterVec
	ComposeDuration     *prometheus.HistogramVec
	ComposeCacheHits    prometheus.Counter
	ComposeCacheMisses  prometheus.Counter
	DroppedTraversals   prometheus.Counter

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initProcessorMetrics()
	r.initArchitectureMetrics()
	r.initLatencyMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
