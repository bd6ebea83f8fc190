package metrics

import (
	"time"
)

// RecordEvent counts one processed event of the given kind.
func (r *Registry) RecordEvent(kind string) {
	r.EventsProcessedTotal.WithLabelValues(kind).Inc()
}

// RecordUnknownEvent counts one skipped event with an unrecognized kind.
func (r *Registry) RecordUnknownEvent() {
	r.UnknownEventsTotal.Inc()
}

// RecordAmbiguousHandle counts a handle resolution rejected as ambiguous.
func (r *Registry) RecordAmbiguousHandle(entity string) {
	r.AmbiguousHandlesTotal.WithLabelValues(entity).Inc()
}

// RecordProcessingResult publishes the instance counts of a finished run.
func (r *Registry) RecordProcessingResult(pairedInstances, openInstances int) {
	r.CallbackInstances.Set(float64(pairedInstances))
	r.OpenInstances.Set(float64(openInstances))
}

// RecordGraphSize publishes the element counts of a built architecture.
func (r *Registry) RecordGraphSize(nodes, callbacks, communications, variablePassings int) {
	r.GraphNodes.Set(float64(nodes))
	r.GraphCallbacks.Set(float64(callbacks))
	r.GraphCommunications.Set(float64(communications))
	r.GraphVariablePassings.Set(float64(variablePassings))
}

// RecordPathSearch records a path search with its duration.
func (r *Registry) RecordPathSearch(status string, duration time.Duration) {
	r.PathSearchesTotal.WithLabelValues(status).Inc()
	r.PathSearchDuration.Observe(duration.Seconds())
}

// RecordCompose records a latency composition over one edge type.
func (r *Registry) RecordCompose(edgeType, status string, duration time.Duration) {
	r.ComposeTotal.WithLabelValues(edgeType, status).Inc()
	r.ComposeDuration.WithLabelValues(edgeType).Observe(duration.Seconds())
}

// RecordCacheHit counts a composed edge table served from the cache.
func (r *Registry) RecordCacheHit() {
	r.ComposeCacheHits.Inc()
}

// RecordCacheMiss counts a composed edge table built from instance data.
func (r *Registry) RecordCacheMiss() {
	r.ComposeCacheMisses.Inc()
}

// RecordDroppedTraversals counts traversals excluded from statistics.
func (r *Registry) RecordDroppedTraversals(n int) {
	r.DroppedTraversals.Add(float64(n))
}
