package models

import "github.com/google/uuid"

// AdResponse is the payload returned to a client from the serve
// endpoint: the winning campaign's creative content plus the
// identifiers needed to attribute a later click.
type AdResponse struct {
	AdID         uuid.UUID `json:"ad_id"` // The winning campaign's ID; clicks are posted against it.
	AdTitle      string    `json:"ad_title"`
	AdText       string    `json:"ad_text"`
	AdPhotoURL   *string   `json:"ad_photo_url"`
	AdvertiserID uuid.UUID `json:"advertiser_id"`

	// ImpressionRecorded reports whether this serve wrote a fresh
	// impression row. Serve-side bookkeeping, hidden from the wire.
	ImpressionRecorded bool `json:"-"`
}

// ClickRequest is the body of a click registration: which client
// clicked the ad named in the path.
type ClickRequest struct {
	ClientID uuid.UUID `json:"client_id"`
}
