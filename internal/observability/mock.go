package observability

import "time"

// MockMetricsRegistry is a mock implementation of MetricsRegistry for testing
type MockMetricsRegistry struct{}

// HTTP Request metrics
func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Serve decision metrics
func (m *MockMetricsRegistry) IncrementServeDecision(outcome string) {}

// Event tracking metrics
func (m *MockMetricsRegistry) IncrementEvent(eventType string)        {}
func (m *MockMetricsRegistry) IncrementRecorderRefusal(reason string) {}

// Stats cache metrics
func (m *MockMetricsRegistry) IncrementStatsCacheHit(scope string)  {}
func (m *MockMetricsRegistry) IncrementStatsCacheMiss(scope string) {}

// Analytics mirror metrics
func (m *MockMetricsRegistry) IncrementAnalyticsExportErrors() {}
