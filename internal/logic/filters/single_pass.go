package filters

import (
	"github.com/patrickwarner/promoserve/internal/models"
)

// SinglePassFilter evaluates all seven eligibility predicates in one
// pass over the candidate slice instead of materializing six
// intermediate slices. The per-predicate filters above stay as the
// reference implementation and the unit under test; this combinator
// must always agree with their composition.
type SinglePassFilter struct {
	client models.Client
	day    int
}

// NewSinglePassFilter creates a filter bound to one serve request.
func NewSinglePassFilter(client models.Client, day int) *SinglePassFilter {
	return &SinglePassFilter{client: client, day: day}
}

// FilterCandidates returns the candidates that pass every predicate.
func (spf *SinglePassFilter) FilterCandidates(cands []models.CampaignCandidate) []models.CampaignCandidate {
	if len(cands) == 0 {
		return nil
	}

	filtered := make([]models.CampaignCandidate, 0, len(cands))
	for _, c := range cands {
		if spf.Eligible(c) {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

// Eligible reports whether a single candidate passes the full
// conjunction. Predicates are ordered cheapest-first; the order has no
// semantic effect.
func (spf *SinglePassFilter) Eligible(c models.CampaignCandidate) bool {
	if !withinWindow(c, spf.day) {
		return false
	}
	if !hasBudget(c) {
		return false
	}
	if !passesImpressionCap(c) {
		return false
	}
	if !passesClickCap(c) {
		return false
	}
	if !matchesGender(c, spf.client) {
		return false
	}
	if !matchesAge(c, spf.client) {
		return false
	}
	return matchesLocation(c, spf.client)
}
