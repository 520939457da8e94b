package models

import (
	"testing"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func validCampaign() Campaign {
	return Campaign{
		ID:                uuid.New(),
		AdvertiserID:      uuid.New(),
		ImpressionsLimit:  100,
		ClicksLimit:       10,
		CostPerImpression: 1.5,
		CostPerClick:      10.0,
		AdTitle:           "Summer Sale",
		AdText:            "Half price on everything",
		StartDate:         0,
		EndDate:           30,
	}
}

func TestCampaignValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Campaign)
		wantErr bool
		field   string
	}{
		{
			name:   "valid baseline",
			mutate: func(c *Campaign) {},
		},
		{
			name:    "zero impressions limit",
			mutate:  func(c *Campaign) { c.ImpressionsLimit = 0 },
			wantErr: true,
			field:   "impressions_limit",
		},
		{
			name:    "negative clicks limit",
			mutate:  func(c *Campaign) { c.ClicksLimit = -1 },
			wantErr: true,
			field:   "clicks_limit",
		},
		{
			name:    "zero cost per impression",
			mutate:  func(c *Campaign) { c.CostPerImpression = 0 },
			wantErr: true,
			field:   "cost_per_impression",
		},
		{
			name:    "zero cost per click",
			mutate:  func(c *Campaign) { c.CostPerClick = 0 },
			wantErr: true,
			field:   "cost_per_click",
		},
		{
			name:    "whitespace title",
			mutate:  func(c *Campaign) { c.AdTitle = "   " },
			wantErr: true,
			field:   "ad_title",
		},
		{
			name:    "empty text",
			mutate:  func(c *Campaign) { c.AdText = "" },
			wantErr: true,
			field:   "ad_text",
		},
		{
			name:    "photo url without scheme",
			mutate:  func(c *Campaign) { c.AdPhotoURL = strPtr("example.com/banner.png") },
			wantErr: true,
			field:   "ad_photo_url",
		},
		{
			name:    "photo url with ftp scheme",
			mutate:  func(c *Campaign) { c.AdPhotoURL = strPtr("ftp://example.com/banner.png") },
			wantErr: true,
			field:   "ad_photo_url",
		},
		{
			name:   "valid https photo url",
			mutate: func(c *Campaign) { c.AdPhotoURL = strPtr("https://cdn.example.com/banner.png") },
		},
		{
			name:    "end date before start date",
			mutate:  func(c *Campaign) { c.StartDate = 10; c.EndDate = 5 },
			wantErr: true,
			field:   "end_date",
		},
		{
			name:    "negative start date",
			mutate:  func(c *Campaign) { c.StartDate = -1 },
			wantErr: true,
			field:   "start_date",
		},
		{
			name:    "unknown targeting gender",
			mutate:  func(c *Campaign) { c.Targeting.Gender = strPtr("OTHER") },
			wantErr: true,
			field:   "targeting.gender",
		},
		{
			name:   "targeting gender ALL",
			mutate: func(c *Campaign) { c.Targeting.Gender = strPtr("ALL") },
		},
		{
			name:    "inverted targeting age range",
			mutate:  func(c *Campaign) { c.Targeting.AgeFrom = intPtr(30); c.Targeting.AgeTo = intPtr(20) },
			wantErr: true,
			field:   "targeting.age_to",
		},
		{
			name:   "single-day window",
			mutate: func(c *Campaign) { c.StartDate = 7; c.EndDate = 7 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCampaign()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected validation error on %s, got nil", tt.field)
				}
				ve, ok := err.(*ValidationError)
				if !ok {
					t.Fatalf("expected *ValidationError, got %T", err)
				}
				if ve.Field != tt.field {
					t.Errorf("expected field %q, got %q", tt.field, ve.Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestCampaignValidateTrimsContent(t *testing.T) {
	c := validCampaign()
	c.AdTitle = "  Summer Sale  "
	c.AdText = "\tHalf price\n"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.AdTitle != "Summer Sale" {
		t.Errorf("title not trimmed: %q", c.AdTitle)
	}
	if c.AdText != "Half price" {
		t.Errorf("text not trimmed: %q", c.AdText)
	}
}

func TestCampaignUpdateApply(t *testing.T) {
	c := validCampaign()
	c.Targeting.Gender = strPtr(GenderMale)
	c.Targeting.AgeFrom = intPtr(18)

	upd := CampaignUpdate{
		CostPerClick: func() *float64 { v := 25.0; return &v }(),
		AdTitle:      strPtr("Autumn Sale"),
		Targeting: &Targeting{
			AgeTo: intPtr(40),
		},
	}
	upd.Apply(&c)

	if c.CostPerClick != 25.0 {
		t.Errorf("cost_per_click not applied: %v", c.CostPerClick)
	}
	if c.AdTitle != "Autumn Sale" {
		t.Errorf("ad_title not applied: %q", c.AdTitle)
	}
	// Untouched fields keep their stored values.
	if c.CostPerImpression != 1.5 {
		t.Errorf("cost_per_impression changed unexpectedly: %v", c.CostPerImpression)
	}
	// Targeting merges per subfield.
	if c.Targeting.Gender == nil || *c.Targeting.Gender != GenderMale {
		t.Errorf("targeting.gender lost during merge")
	}
	if c.Targeting.AgeFrom == nil || *c.Targeting.AgeFrom != 18 {
		t.Errorf("targeting.age_from lost during merge")
	}
	if c.Targeting.AgeTo == nil || *c.Targeting.AgeTo != 40 {
		t.Errorf("targeting.age_to not applied")
	}
}

func TestClientValidate(t *testing.T) {
	valid := Client{ID: uuid.New(), Login: "alice", Age: 30, Location: "Paris", Gender: GenderFemale}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lower := Client{ID: uuid.New(), Login: "bob", Age: 20, Gender: "male"}
	if err := lower.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lower.Gender != GenderMale {
		t.Errorf("gender not canonicalized: %q", lower.Gender)
	}

	bad := []Client{
		{ID: uuid.New(), Login: "  ", Age: 30, Gender: GenderMale},
		{ID: uuid.New(), Login: "carol", Age: -1, Gender: GenderFemale},
		{ID: uuid.New(), Login: "dave", Age: 30, Gender: "UNKNOWN"},
	}
	for i := range bad {
		if err := bad[i].Validate(); err == nil {
			t.Errorf("client %d: expected validation error", i)
		}
	}
}

func TestMLScoreValidate(t *testing.T) {
	ok := MLScore{ClientID: uuid.New(), AdvertiserID: uuid.New(), Score: 0}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	neg := MLScore{ClientID: uuid.New(), AdvertiserID: uuid.New(), Score: -5}
	if err := neg.Validate(); err == nil {
		t.Fatal("expected validation error for negative score")
	}
}
