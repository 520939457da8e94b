package models

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Targeting narrows the audience a campaign may serve to. Every field
// is optional; a nil field places no constraint. Gender may be ALL,
// which matches both genders and is equivalent to leaving it unset.
type Targeting struct {
	Gender   *string `json:"gender"`    // MALE, FEMALE or ALL.
	AgeFrom  *int    `json:"age_from"`  // Minimum client age, inclusive.
	AgeTo    *int    `json:"age_to"`    // Maximum client age, inclusive.
	Location *string `json:"location"`  // Exact-match location label.
}

// Campaign is the unit of delivery: one ad payload, hard budget caps,
// a validity window on the virtual-day timeline, and optional audience
// targeting. Campaigns are soft-deleted; a tombstoned campaign is
// invisible to serving and campaign-level reads but its recorded
// events remain in the log.
type Campaign struct {
	ID                uuid.UUID `json:"campaign_id"`
	AdvertiserID      uuid.UUID `json:"advertiser_id"`
	ImpressionsLimit  int       `json:"impressions_limit"`   // Cap on unique viewers shown the ad, > 0.
	ClicksLimit       int       `json:"clicks_limit"`        // Cap on unique viewers who clicked, > 0.
	CostPerImpression float64   `json:"cost_per_impression"` // Revenue per unique impression, > 0.
	CostPerClick      float64   `json:"cost_per_click"`      // Revenue per unique click, > 0.
	AdTitle           string    `json:"ad_title"`
	AdText            string    `json:"ad_text"`
	AdPhotoURL        *string   `json:"ad_photo_url"` // Optional absolute http(s) URL.
	StartDate         int       `json:"start_date"`   // First virtual day the campaign may serve, inclusive.
	EndDate           int       `json:"end_date"`     // Last virtual day the campaign may serve, inclusive.
	Targeting         Targeting `json:"targeting"`
	IsDeleted         bool      `json:"-"` // Tombstone; hidden from the wire.
	CreateDate        time.Time `json:"-"` // Insertion timestamp, drives list ordering.
}

// Validate normalizes the campaign in place and reports the first
// violated invariant. Title and text are stored trimmed; the photo
// URL, when present, must be an absolute http(s) URL with a host.
func (c *Campaign) Validate() error {
	if c.ImpressionsLimit <= 0 {
		return Invalid("impressions_limit", "must be positive")
	}
	if c.ClicksLimit <= 0 {
		return Invalid("clicks_limit", "must be positive")
	}
	if c.CostPerImpression <= 0 {
		return Invalid("cost_per_impression", "must be positive")
	}
	if c.CostPerClick <= 0 {
		return Invalid("cost_per_click", "must be positive")
	}
	c.AdTitle = strings.TrimSpace(c.AdTitle)
	if c.AdTitle == "" {
		return Invalid("ad_title", "must not be empty")
	}
	c.AdText = strings.TrimSpace(c.AdText)
	if c.AdText == "" {
		return Invalid("ad_text", "must not be empty")
	}
	if c.AdPhotoURL != nil {
		u := strings.TrimSpace(*c.AdPhotoURL)
		if err := validatePhotoURL(u); err != nil {
			return err
		}
		c.AdPhotoURL = &u
	}
	if c.StartDate < 0 {
		return Invalid("start_date", "must be non-negative")
	}
	if c.EndDate < 0 {
		return Invalid("end_date", "must be non-negative")
	}
	if c.EndDate < c.StartDate {
		return Invalid("end_date", "must be greater than or equal to start_date")
	}
	return c.Targeting.validate()
}

func validatePhotoURL(raw string) error {
	if raw == "" {
		return Invalid("ad_photo_url", "must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Invalid("ad_photo_url", "must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Invalid("ad_photo_url", "must start with http:// or https://")
	}
	if u.Host == "" {
		return Invalid("ad_photo_url", "must contain a host")
	}
	return nil
}

func (t *Targeting) validate() error {
	if t.Gender != nil {
		g := strings.ToUpper(strings.TrimSpace(*t.Gender))
		if g != GenderMale && g != GenderFemale && g != GenderAll {
			return Invalid("targeting.gender", "must be MALE, FEMALE or ALL")
		}
		t.Gender = &g
	}
	if t.AgeFrom != nil && *t.AgeFrom < 0 {
		return Invalid("targeting.age_from", "must be non-negative")
	}
	if t.AgeTo != nil && *t.AgeTo < 0 {
		return Invalid("targeting.age_to", "must be non-negative")
	}
	if t.AgeFrom != nil && t.AgeTo != nil && *t.AgeTo < *t.AgeFrom {
		return Invalid("targeting.age_to", "must be greater than or equal to age_from")
	}
	return nil
}

// CampaignUpdate is a partial campaign edit. Nil fields keep the
// stored value; there is no way to clear a previously set field back
// to null. Targeting, when present, merges per subfield under the
// same rule.
type CampaignUpdate struct {
	ImpressionsLimit  *int       `json:"impressions_limit"`
	ClicksLimit       *int       `json:"clicks_limit"`
	CostPerImpression *float64   `json:"cost_per_impression"`
	CostPerClick      *float64   `json:"cost_per_click"`
	AdTitle           *string    `json:"ad_title"`
	AdText            *string    `json:"ad_text"`
	AdPhotoURL        *string    `json:"ad_photo_url"`
	StartDate         *int       `json:"start_date"`
	EndDate           *int       `json:"end_date"`
	Targeting         *Targeting `json:"targeting"`
}

// Apply merges the update into c. The merged campaign is re-validated
// by the caller, so cross-field invariants hold over the combination
// of old and new values.
func (u *CampaignUpdate) Apply(c *Campaign) {
	if u.ImpressionsLimit != nil {
		c.ImpressionsLimit = *u.ImpressionsLimit
	}
	if u.ClicksLimit != nil {
		c.ClicksLimit = *u.ClicksLimit
	}
	if u.CostPerImpression != nil {
		c.CostPerImpression = *u.CostPerImpression
	}
	if u.CostPerClick != nil {
		c.CostPerClick = *u.CostPerClick
	}
	if u.AdTitle != nil {
		c.AdTitle = *u.AdTitle
	}
	if u.AdText != nil {
		c.AdText = *u.AdText
	}
	if u.AdPhotoURL != nil {
		c.AdPhotoURL = u.AdPhotoURL
	}
	if u.StartDate != nil {
		c.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		c.EndDate = *u.EndDate
	}
	if u.Targeting != nil {
		if u.Targeting.Gender != nil {
			c.Targeting.Gender = u.Targeting.Gender
		}
		if u.Targeting.AgeFrom != nil {
			c.Targeting.AgeFrom = u.Targeting.AgeFrom
		}
		if u.Targeting.AgeTo != nil {
			c.Targeting.AgeTo = u.Targeting.AgeTo
		}
		if u.Targeting.Location != nil {
			c.Targeting.Location = u.Targeting.Location
		}
	}
}
