package models

// CampaignCandidate bundles a campaign with the per-request facts the
// eligibility filters and the ranker consume: campaign-wide unique
// event counts, the requesting client's own event flags, and the ML
// affinity score for the campaign's advertiser. A candidate is built
// once per serve request from a single store snapshot.
type CampaignCandidate struct {
	Campaign          Campaign
	UniqueImpressions int  // Distinct clients with an impression on this campaign.
	UniqueClicks      int  // Distinct clients with a click on this campaign.
	HasImpression     bool // The requesting client already has an impression.
	HasClick          bool // The requesting client already has a click.
	Score             int  // ML affinity of (client, campaign.advertiser); 0 when absent.
}
