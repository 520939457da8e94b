package models

import "github.com/google/uuid"

// MLScore is the predicted affinity of a client for an advertiser,
// provided by an external model and upserted by composite key. The
// serving engine reads it when ranking that advertiser's campaigns;
// a missing score is treated as 0.
type MLScore struct {
	ClientID     uuid.UUID `json:"client_id"`
	AdvertiserID uuid.UUID `json:"advertiser_id"`
	Score        int       `json:"score"` // Non-negative affinity value; higher means more likely to click.
}

// Validate rejects negative scores.
func (m *MLScore) Validate() error {
	if m.Score < 0 {
		return Invalid("score", "must be non-negative")
	}
	return nil
}
