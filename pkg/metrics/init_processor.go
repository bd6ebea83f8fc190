package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initProcessorMetrics() {
	r.EventsProcessedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trace_analysis_events_processed_total",
			Help: "Total number of trace events processed, by kind",
		},
		[]string{"kind"},
	)

	r.UnknownEventsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "trace_analysis_unknown_events_total",
			Help: "Total number of events with an unrecognized kind, skipped",
		},
	)

	r.AmbiguousHandlesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trace_analysis_ambiguous_handles_total",
			Help: "Total number of handle resolutions rejected as ambiguous",
		},
		[]string{"entity"},
	)

	r.OpenInstances = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trace_analysis_open_callback_instances",
			Help: "Callback starts left without a matching end at trace end",
		},
	)

	r.CallbackInstances = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trace_analysis_callback_instances",
			Help: "Paired callback start/end instances extracted from the trace",
		},
	)
}
