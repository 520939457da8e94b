package filters

import (
	"github.com/patrickwarner/promoserve/internal/models"
)

// Eligibility is a conjunction of seven hard predicates. Each filter
// below applies one predicate to a candidate slice; SinglePassFilter
// evaluates all of them in one pass. A campaign must pass every
// predicate to be rankable, no matter how its expected profit compares.

// FilterByWindow keeps candidates whose validity window contains the
// given virtual day.
func FilterByWindow(cands []models.CampaignCandidate, day int) []models.CampaignCandidate {
	var out []models.CampaignCandidate
	for _, c := range cands {
		if withinWindow(c, day) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByBudget drops candidates with both caps exhausted. A campaign
// that can neither show a new impression nor take a new click is dead.
func FilterByBudget(cands []models.CampaignCandidate) []models.CampaignCandidate {
	var out []models.CampaignCandidate
	for _, c := range cands {
		if hasBudget(c) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByImpressionCap keeps candidates that can still show an
// impression to this client: either the client already saw the ad, or
// the unique-impression cap has room for a fresh viewer.
func FilterByImpressionCap(cands []models.CampaignCandidate) []models.CampaignCandidate {
	var out []models.CampaignCandidate
	for _, c := range cands {
		if passesImpressionCap(c) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByClickCap is the click-side analogue of FilterByImpressionCap.
func FilterByClickCap(cands []models.CampaignCandidate) []models.CampaignCandidate {
	var out []models.CampaignCandidate
	for _, c := range cands {
		if passesClickCap(c) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByGender keeps candidates whose gender targeting matches the
// client. No targeting and ALL both match everyone.
func FilterByGender(cands []models.CampaignCandidate, client models.Client) []models.CampaignCandidate {
	var out []models.CampaignCandidate
	for _, c := range cands {
		if matchesGender(c, client) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByAge keeps candidates whose age bounds admit the client. A
// client without an age is treated as age 0.
func FilterByAge(cands []models.CampaignCandidate, client models.Client) []models.CampaignCandidate {
	var out []models.CampaignCandidate
	for _, c := range cands {
		if matchesAge(c, client) {
			out = append(out, c)
		}
	}
	return out
}

// FilterByLocation keeps candidates whose location targeting matches
// the client exactly. An unset or empty target matches everyone; a
// client without a location carries the empty string.
func FilterByLocation(cands []models.CampaignCandidate, client models.Client) []models.CampaignCandidate {
	var out []models.CampaignCandidate
	for _, c := range cands {
		if matchesLocation(c, client) {
			out = append(out, c)
		}
	}
	return out
}

func withinWindow(c models.CampaignCandidate, day int) bool {
	return c.Campaign.StartDate <= day && day <= c.Campaign.EndDate
}

func hasBudget(c models.CampaignCandidate) bool {
	return c.UniqueImpressions < c.Campaign.ImpressionsLimit ||
		c.UniqueClicks < c.Campaign.ClicksLimit
}

func passesImpressionCap(c models.CampaignCandidate) bool {
	return c.HasImpression || c.UniqueImpressions < c.Campaign.ImpressionsLimit
}

func passesClickCap(c models.CampaignCandidate) bool {
	return c.HasClick || c.UniqueClicks < c.Campaign.ClicksLimit
}

func matchesGender(c models.CampaignCandidate, client models.Client) bool {
	g := c.Campaign.Targeting.Gender
	if g == nil || *g == models.GenderAll {
		return true
	}
	return *g == client.Gender
}

func matchesAge(c models.CampaignCandidate, client models.Client) bool {
	t := c.Campaign.Targeting
	if t.AgeFrom != nil && client.Age < *t.AgeFrom {
		return false
	}
	if t.AgeTo != nil && client.Age > *t.AgeTo {
		return false
	}
	return true
}

func matchesLocation(c models.CampaignCandidate, client models.Client) bool {
	loc := c.Campaign.Targeting.Location
	if loc == nil || *loc == "" {
		return true
	}
	return *loc == client.Location
}
