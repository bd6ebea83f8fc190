package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initArchitectureMetrics() {
	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trace_analysis_graph_nodes",
			Help: "Nodes in the reconstructed architecture graph",
		},
	)

	r.GraphCallbacks = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trace_analysis_graph_callbacks",
			Help: "Callbacks in the reconstructed architecture graph",
		},
	)

	r.GraphCommunications = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trace_analysis_graph_communications",
			Help: "Communication edges in the reconstructed architecture graph",
		},
	)

	r.GraphVariablePassings = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trace_analysis_graph_variable_passings",
			Help: "Variable-passing edges in the reconstructed architecture graph",
		},
	)
}
