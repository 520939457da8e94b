package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// This replaces direct access to global Prometheus metrics with dependency injection
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Serve decision metrics
	IncrementServeDecision(outcome string)

	// Event tracking metrics
	IncrementEvent(eventType string)
	IncrementRecorderRefusal(reason string)

	// Stats cache metrics
	IncrementStatsCacheHit(scope string)
	IncrementStatsCacheMiss(scope string)

	// Analytics mirror metrics
	IncrementAnalyticsExportErrors()
}

// PrometheusRegistry implements MetricsRegistry using the existing global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// HTTP Request metrics
func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Serve decision metrics
func (r *PrometheusRegistry) IncrementServeDecision(outcome string) {
	ServeDecisions.WithLabelValues(outcome).Inc()
}

// Event tracking metrics
func (r *PrometheusRegistry) IncrementEvent(eventType string) {
	EventCount.WithLabelValues(eventType).Inc()
}

func (r *PrometheusRegistry) IncrementRecorderRefusal(reason string) {
	RecorderRefusals.WithLabelValues(reason).Inc()
}

// Stats cache metrics
func (r *PrometheusRegistry) IncrementStatsCacheHit(scope string) {
	StatsCacheHits.WithLabelValues(scope).Inc()
}

func (r *PrometheusRegistry) IncrementStatsCacheMiss(scope string) {
	StatsCacheMisses.WithLabelValues(scope).Inc()
}

// Analytics mirror metrics
func (r *PrometheusRegistry) IncrementAnalyticsExportErrors() {
	AnalyticsExportErrors.Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

// HTTP Request metrics
func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Serve decision metrics
func (r *NoOpRegistry) IncrementServeDecision(outcome string) {}

// Event tracking metrics
func (r *NoOpRegistry) IncrementEvent(eventType string)        {}
func (r *NoOpRegistry) IncrementRecorderRefusal(reason string) {}

// Stats cache metrics
func (r *NoOpRegistry) IncrementStatsCacheHit(scope string)  {}
func (r *NoOpRegistry) IncrementStatsCacheMiss(scope string) {}

// Analytics mirror metrics
func (r *NoOpRegistry) IncrementAnalyticsExportErrors() {}
