package analytics

import (
	"context"
	"sync"

	"github.com/patrickwarner/promoserve/internal/logic"
	"github.com/patrickwarner/promoserve/internal/models"
)

var _ AnalyticsService = (*MockAnalytics)(nil)

// MockAnalytics records mirrored events in memory for tests.
type MockAnalytics struct {
	mu     sync.Mutex
	Events []MockEvent
}

// MockEvent is one captured mirror call.
type MockEvent struct {
	EventType  string
	CampaignID string
	ClientID   string
	Day        int
	Context    logic.EventContext
}

// NewMockAnalytics creates a new mock analytics instance.
func NewMockAnalytics() *MockAnalytics {
	return &MockAnalytics{}
}

// RecordImpression captures an impression mirror call.
func (m *MockAnalytics) RecordImpression(ctx context.Context, campaign models.Campaign, clientID string, day int, ec logic.EventContext) error {
	m.capture(models.EventImpression, campaign, clientID, day, ec)
	return nil
}

// RecordClick captures a click mirror call.
func (m *MockAnalytics) RecordClick(ctx context.Context, campaign models.Campaign, clientID string, day int, ec logic.EventContext) error {
	m.capture(models.EventClick, campaign, clientID, day, ec)
	return nil
}

func (m *MockAnalytics) capture(eventType string, campaign models.Campaign, clientID string, day int, ec logic.EventContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, MockEvent{
		EventType:  eventType,
		CampaignID: campaign.ID.String(),
		ClientID:   clientID,
		Day:        day,
		Context:    ec,
	})
}

// Recorded returns a copy of the captured events.
func (m *MockAnalytics) Recorded() []MockEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockEvent, len(m.Events))
	copy(out, m.Events)
	return out
}
