package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/patrickwarner/promoserve/internal/models"
)

// EventCounts holds campaign-wide unique-viewer totals. Each client is
// counted at most once per event type no matter how the log grew.
type EventCounts struct {
	Impressions int
	Clicks      int
}

// ClientFlags marks whether a particular client already has events on a
// campaign. The selector uses them both as eligibility inputs and to
// decide which expected-profit arm applies.
type ClientFlags struct {
	HasImpression bool
	HasClick      bool
}

// DailyEventCounts is one (campaign, day) cell of the daily breakdown.
type DailyEventCounts struct {
	CampaignID  uuid.UUID
	Day         int
	Impressions int
	Clicks      int
}

// UniqueEventCounts returns per-campaign distinct-client impression and
// click counts for the given campaigns in a single query. Campaigns
// with no events are absent from the map.
func (p *Postgres) UniqueEventCounts(ctx context.Context, campaignIDs []uuid.UUID) (map[uuid.UUID]EventCounts, error) {
	counts := make(map[uuid.UUID]EventCounts)
	if len(campaignIDs) == 0 {
		return counts, nil
	}
	ids := make([]string, len(campaignIDs))
	for i, id := range campaignIDs {
		ids[i] = id.String()
	}
	rows, err := p.DB.QueryContext(ctx, `SELECT campaign_id,
            COUNT(DISTINCT client_id) FILTER (WHERE event_type = 'impression'),
            COUNT(DISTINCT client_id) FILTER (WHERE event_type = 'click')
        FROM ad_events WHERE campaign_id = ANY($1)
        GROUP BY campaign_id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query event counts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var id uuid.UUID
		var c EventCounts
		if err := rows.Scan(&id, &c.Impressions, &c.Clicks); err != nil {
			return nil, fmt.Errorf("scan event counts: %w", err)
		}
		counts[id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}

// ClientEventFlags reports which of the given campaigns the client has
// already been impressed by or clicked. The unique index guarantees at
// most one row per (campaign, type), so a plain scan suffices.
func (p *Postgres) ClientEventFlags(ctx context.Context, clientID uuid.UUID, campaignIDs []uuid.UUID) (map[uuid.UUID]ClientFlags, error) {
	flags := make(map[uuid.UUID]ClientFlags)
	if len(campaignIDs) == 0 {
		return flags, nil
	}
	ids := make([]string, len(campaignIDs))
	for i, id := range campaignIDs {
		ids[i] = id.String()
	}
	rows, err := p.DB.QueryContext(ctx, `SELECT campaign_id, event_type
        FROM ad_events WHERE client_id = $1 AND campaign_id = ANY($2)`,
		clientID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query client event flags: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var id uuid.UUID
		var eventType string
		if err := rows.Scan(&id, &eventType); err != nil {
			return nil, fmt.Errorf("scan client event flags: %w", err)
		}
		f := flags[id]
		switch eventType {
		case models.EventImpression:
			f.HasImpression = true
		case models.EventClick:
			f.HasClick = true
		}
		flags[id] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return flags, nil
}

// DailyUniqueCounts returns the per-day unique-viewer breakdown for the
// given campaigns, ascending by day. Days without events produce no row.
func (p *Postgres) DailyUniqueCounts(ctx context.Context, campaignIDs []uuid.UUID) ([]DailyEventCounts, error) {
	if len(campaignIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(campaignIDs))
	for i, id := range campaignIDs {
		ids[i] = id.String()
	}
	rows, err := p.DB.QueryContext(ctx, `SELECT campaign_id, event_day,
            COUNT(DISTINCT client_id) FILTER (WHERE event_type = 'impression'),
            COUNT(DISTINCT client_id) FILTER (WHERE event_type = 'click')
        FROM ad_events WHERE campaign_id = ANY($1)
        GROUP BY campaign_id, event_day
        ORDER BY event_day, campaign_id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []DailyEventCounts
	for rows.Next() {
		var d DailyEventCounts
		if err := rows.Scan(&d.CampaignID, &d.Day, &d.Impressions, &d.Clicks); err != nil {
			return nil, fmt.Errorf("scan daily counts: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
