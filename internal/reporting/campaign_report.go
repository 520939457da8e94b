// Package reporting computes campaign and advertiser performance
// statistics from the authoritative event log. Every count is a
// unique-viewer count and every spend figure prices those counts at
// the campaign's current rates, so a price edit revalues history.
package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/db"
	"github.com/patrickwarner/promoserve/internal/models"
	"github.com/patrickwarner/promoserve/internal/observability"
)

// Store is the slice of the catalog and event log the reporter reads.
// *db.Postgres implements it.
type Store interface {
	GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error)
	GetAdvertiser(ctx context.Context, id uuid.UUID) (*models.Advertiser, error)
	CampaignsByAdvertiser(ctx context.Context, advertiserID uuid.UUID) ([]models.Campaign, error)
	UniqueEventCounts(ctx context.Context, campaignIDs []uuid.UUID) (map[uuid.UUID]db.EventCounts, error)
	DailyUniqueCounts(ctx context.Context, campaignIDs []uuid.UUID) ([]db.DailyEventCounts, error)
}

// Reporter aggregates statistics, optionally memoizing results in the
// version-keyed Redis cache. A nil cache disables memoization; every
// call then falls through to Postgres.
type Reporter struct {
	store    Store
	cache    *db.RedisStore
	cacheTTL time.Duration
	metrics  observability.MetricsRegistry
	logger   *zap.Logger
}

// NewReporter constructs a Reporter. cache may be nil.
func NewReporter(store Store, cache *db.RedisStore, cacheTTL time.Duration, metrics observability.MetricsRegistry, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{store: store, cache: cache, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

// CampaignTotals returns lifetime statistics for one campaign.
// Soft-deleted campaigns are invisible here: models.ErrNotFound.
func (r *Reporter) CampaignTotals(ctx context.Context, campaignID uuid.UUID) (*models.Stats, error) {
	c, err := r.store.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	var stats models.Stats
	key, ok, err := r.cacheKey(ctx, "campaign", campaignID.String(), []uuid.UUID{campaignID})
	if err == nil && ok {
		if hit := r.cacheGet(ctx, "campaign", key, &stats); hit {
			return &stats, nil
		}
	}

	counts, err := r.store.UniqueEventCounts(ctx, []uuid.UUID{campaignID})
	if err != nil {
		return nil, err
	}
	stats = pricedStats(counts[campaignID], *c)

	r.cachePut(ctx, key, stats)
	return &stats, nil
}

// CampaignDaily returns the campaign's per-day breakdown, ascending by
// day. Days without events are absent. Soft-deleted campaigns: ErrNotFound.
func (r *Reporter) CampaignDaily(ctx context.Context, campaignID uuid.UUID) ([]models.DailyStats, error) {
	c, err := r.store.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	var daily []models.DailyStats
	key, ok, err := r.cacheKey(ctx, "campaign", campaignID.String()+":daily", []uuid.UUID{campaignID})
	if err == nil && ok {
		if hit := r.cacheGet(ctx, "campaign", key, &daily); hit {
			return daily, nil
		}
	}

	rows, err := r.store.DailyUniqueCounts(ctx, []uuid.UUID{campaignID})
	if err != nil {
		return nil, err
	}
	daily = make([]models.DailyStats, 0, len(rows))
	for _, row := range rows {
		daily = append(daily, models.DailyStats{
			Stats: pricedStats(db.EventCounts{Impressions: row.Impressions, Clicks: row.Clicks}, *c),
			Date:  row.Day,
		})
	}

	r.cachePut(ctx, key, daily)
	return daily, nil
}

// AdvertiserTotals sums statistics over all of the advertiser's
// campaigns. Soft-deleted campaigns stay in scope: their events remain
// billable history even though campaign-level reads hide them.
func (r *Reporter) AdvertiserTotals(ctx context.Context, advertiserID uuid.UUID) (*models.Stats, error) {
	campaigns, err := r.advertiserCampaigns(ctx, advertiserID)
	if err != nil {
		return nil, err
	}

	ids := campaignIDs(campaigns)
	var stats models.Stats
	key, ok, err := r.cacheKey(ctx, "advertiser", advertiserID.String(), ids)
	if err == nil && ok {
		if hit := r.cacheGet(ctx, "advertiser", key, &stats); hit {
			return &stats, nil
		}
	}

	counts, err := r.store.UniqueEventCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range campaigns {
		s := pricedStats(counts[c.ID], c)
		stats.ImpressionsCount += s.ImpressionsCount
		stats.ClicksCount += s.ClicksCount
		stats.SpentImpressions += s.SpentImpressions
		stats.SpentClicks += s.SpentClicks
	}
	stats.SpentTotal = stats.SpentImpressions + stats.SpentClicks
	stats.Conversion = conversion(stats.ImpressionsCount, stats.ClicksCount)

	r.cachePut(ctx, key, stats)
	return &stats, nil
}

// AdvertiserDaily merges the per-day breakdowns of all the advertiser's
// campaigns, ascending by day. Spend per day uses each campaign's own
// rates.
func (r *Reporter) AdvertiserDaily(ctx context.Context, advertiserID uuid.UUID) ([]models.DailyStats, error) {
	campaigns, err := r.advertiserCampaigns(ctx, advertiserID)
	if err != nil {
		return nil, err
	}

	ids := campaignIDs(campaigns)
	var daily []models.DailyStats
	key, ok, err := r.cacheKey(ctx, "advertiser", advertiserID.String()+":daily", ids)
	if err == nil && ok {
		if hit := r.cacheGet(ctx, "advertiser", key, &daily); hit {
			return daily, nil
		}
	}

	rows, err := r.store.DailyUniqueCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	rates := make(map[uuid.UUID]models.Campaign, len(campaigns))
	for _, c := range campaigns {
		rates[c.ID] = c
	}

	byDay := make(map[int]*models.DailyStats)
	for _, row := range rows {
		d, ok := byDay[row.Day]
		if !ok {
			d = &models.DailyStats{Date: row.Day}
			byDay[row.Day] = d
		}
		c := rates[row.CampaignID]
		d.ImpressionsCount += row.Impressions
		d.ClicksCount += row.Clicks
		d.SpentImpressions += float64(row.Impressions) * c.CostPerImpression
		d.SpentClicks += float64(row.Clicks) * c.CostPerClick
	}

	daily = make([]models.DailyStats, 0, len(byDay))
	for _, d := range byDay {
		d.SpentTotal = d.SpentImpressions + d.SpentClicks
		d.Conversion = conversion(d.ImpressionsCount, d.ClicksCount)
		daily = append(daily, *d)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	r.cachePut(ctx, key, daily)
	return daily, nil
}

// advertiserCampaigns loads the advertiser's full campaign set,
// tombstoned ones included, after confirming the advertiser exists.
func (r *Reporter) advertiserCampaigns(ctx context.Context, advertiserID uuid.UUID) ([]models.Campaign, error) {
	if _, err := r.store.GetAdvertiser(ctx, advertiserID); err != nil {
		return nil, err
	}
	return r.store.CampaignsByAdvertiser(ctx, advertiserID)
}

// pricedStats prices a set of unique counts at the campaign's current
// rates.
func pricedStats(counts db.EventCounts, c models.Campaign) models.Stats {
	s := models.Stats{
		ImpressionsCount: counts.Impressions,
		ClicksCount:      counts.Clicks,
		SpentImpressions: float64(counts.Impressions) * c.CostPerImpression,
		SpentClicks:      float64(counts.Clicks) * c.CostPerClick,
	}
	s.SpentTotal = s.SpentImpressions + s.SpentClicks
	s.Conversion = conversion(s.ImpressionsCount, s.ClicksCount)
	return s
}

func conversion(impressions, clicks int) float64 {
	if impressions == 0 {
		return 0
	}
	return 100 * float64(clicks) / float64(impressions)
}

func campaignIDs(campaigns []models.Campaign) []uuid.UUID {
	ids := make([]uuid.UUID, len(campaigns))
	for i := range campaigns {
		ids[i] = campaigns[i].ID
	}
	return ids
}

// cacheKey builds the version-qualified key for a scope. Versions of
// every involved campaign are summed, so a bump anywhere orphans all
// affected entries. ok is false when caching is disabled.
func (r *Reporter) cacheKey(ctx context.Context, scope, id string, ids []uuid.UUID) (string, bool, error) {
	if r.cache == nil {
		return "", false, nil
	}
	var version int64
	for _, cid := range ids {
		v, err := r.cache.CampaignStatsVersion(ctx, cid.String())
		if err != nil {
			return "", false, err
		}
		version += v
	}
	return fmt.Sprintf("stats:%s:%s:v%d", scope, id, version), true, nil
}

func (r *Reporter) cacheGet(ctx context.Context, scope, key string, dest any) bool {
	payload, ok, err := r.cache.GetCachedStats(ctx, key)
	if err != nil {
		r.logger.Warn("stats cache read", zap.Error(err))
		return false
	}
	if !ok {
		r.metrics.IncrementStatsCacheMiss(scope)
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		r.logger.Warn("stats cache decode", zap.Error(err))
		return false
	}
	r.metrics.IncrementStatsCacheHit(scope)
	return true
}

func (r *Reporter) cachePut(ctx context.Context, key string, v any) {
	if r.cache == nil || key == "" {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.SetCachedStats(ctx, key, payload, r.cacheTTL); err != nil {
		r.logger.Warn("stats cache write", zap.Error(err))
	}
}
