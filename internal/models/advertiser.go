package models

import (
	"strings"

	"github.com/google/uuid"
)

// Advertiser owns campaigns and is the subject of ML affinity scores.
// Advertisers are upserted by ID and never deleted.
type Advertiser struct {
	ID   uuid.UUID `json:"advertiser_id"` // Unique identifier for the advertiser.
	Name string    `json:"name"`          // Human-readable name, non-empty.
}

// Validate trims the name and reports an empty result.
func (a *Advertiser) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return Invalid("name", "must not be empty")
	}
	return nil
}
