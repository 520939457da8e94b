package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types recorded against a campaign. The log holds at most one
// event of each type per (campaign, client) pair.
const (
	EventImpression = "impression"
	EventClick      = "click"
)

// AdEvent is one row of the append-only event log: a given client saw
// or clicked a given campaign on a given virtual day. EventDay is the
// clock value at write time and is what daily statistics group by;
// Timestamp is wall-clock and informational only.
type AdEvent struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	ClientID   uuid.UUID `json:"client_id"`
	EventType  string    `json:"event_type"` // EventImpression or EventClick.
	EventDay   int       `json:"event_day"`
	Timestamp  time.Time `json:"event_timestamp"`
}
