package models

// Stats aggregates a campaign's (or an advertiser's) performance as
// unique-viewer counts priced at the campaign's current rates. All
// counts are distinct clients, never raw event rows. Conversion is a
// percentage: 100 * clicks / impressions, or 0 with no impressions.
type Stats struct {
	ImpressionsCount int     `json:"impressions_count"`
	ClicksCount      int     `json:"clicks_count"`
	Conversion       float64 `json:"conversion"`
	SpentImpressions float64 `json:"spent_impressions"`
	SpentClicks      float64 `json:"spent_clicks"`
	SpentTotal       float64 `json:"spent_total"`
}

// DailyStats is Stats restricted to a single virtual day. Days without
// events do not produce a record.
type DailyStats struct {
	Stats
	Date int `json:"date"` // The virtual day the events were recorded on.
}
