package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/promoserve/internal/db"
	"github.com/patrickwarner/promoserve/internal/models"
	"github.com/patrickwarner/promoserve/internal/observability"
)

func newTestRedisStore(t *testing.T) *db.RedisStore {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &db.RedisStore{Client: redis.NewClient(&redis.Options{Addr: s.Addr()})}
}

type fakeStore struct {
	campaigns   map[uuid.UUID]models.Campaign
	advertisers map[uuid.UUID]models.Advertiser
	counts      map[uuid.UUID]db.EventCounts
	daily       []db.DailyEventCounts
}

func (f *fakeStore) GetCampaignByID(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok || c.IsDeleted {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (f *fakeStore) GetAdvertiser(_ context.Context, id uuid.UUID) (*models.Advertiser, error) {
	a, ok := f.advertisers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

func (f *fakeStore) CampaignsByAdvertiser(_ context.Context, advertiserID uuid.UUID) ([]models.Campaign, error) {
	var out []models.Campaign
	for _, c := range f.campaigns {
		if c.AdvertiserID == advertiserID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) UniqueEventCounts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]db.EventCounts, error) {
	out := make(map[uuid.UUID]db.EventCounts)
	for _, id := range ids {
		if c, ok := f.counts[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeStore) DailyUniqueCounts(_ context.Context, ids []uuid.UUID) ([]db.DailyEventCounts, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []db.DailyEventCounts
	for _, d := range f.daily {
		if want[d.CampaignID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func newTestReporter(store *fakeStore) *Reporter {
	return NewReporter(store, nil, time.Minute, observability.NewNoOpRegistry(), zap.NewNop())
}

func reportCampaign(advertiserID uuid.UUID, cpi, cpc float64) models.Campaign {
	return models.Campaign{
		ID:                uuid.New(),
		AdvertiserID:      advertiserID,
		CostPerImpression: cpi,
		CostPerClick:      cpc,
	}
}

func TestCampaignTotals(t *testing.T) {
	camp := reportCampaign(uuid.New(), 0.5, 2)
	store := &fakeStore{
		campaigns: map[uuid.UUID]models.Campaign{camp.ID: camp},
		counts:    map[uuid.UUID]db.EventCounts{camp.ID: {Impressions: 10, Clicks: 4}},
	}

	stats, err := newTestReporter(store).CampaignTotals(context.Background(), camp.ID)
	require.NoError(t, err)

	assert.Equal(t, 10, stats.ImpressionsCount)
	assert.Equal(t, 4, stats.ClicksCount)
	assert.InDelta(t, 40.0, stats.Conversion, 1e-9)
	assert.InDelta(t, 5.0, stats.SpentImpressions, 1e-9)
	assert.InDelta(t, 8.0, stats.SpentClicks, 1e-9)
	assert.InDelta(t, 13.0, stats.SpentTotal, 1e-9)
}

func TestCampaignTotalsNoEvents(t *testing.T) {
	camp := reportCampaign(uuid.New(), 1, 1)
	store := &fakeStore{campaigns: map[uuid.UUID]models.Campaign{camp.ID: camp}}

	stats, err := newTestReporter(store).CampaignTotals(context.Background(), camp.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.ImpressionsCount)
	assert.Zero(t, stats.Conversion, "no impressions means zero conversion, not NaN")
}

func TestCampaignTotalsDeletedCampaign(t *testing.T) {
	camp := reportCampaign(uuid.New(), 1, 1)
	camp.IsDeleted = true
	store := &fakeStore{campaigns: map[uuid.UUID]models.Campaign{camp.ID: camp}}

	_, err := newTestReporter(store).CampaignTotals(context.Background(), camp.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCampaignDailyAscending(t *testing.T) {
	camp := reportCampaign(uuid.New(), 1, 2)
	store := &fakeStore{
		campaigns: map[uuid.UUID]models.Campaign{camp.ID: camp},
		daily: []db.DailyEventCounts{
			{CampaignID: camp.ID, Day: 3, Impressions: 2, Clicks: 1},
			{CampaignID: camp.ID, Day: 7, Impressions: 5, Clicks: 0},
		},
	}

	daily, err := newTestReporter(store).CampaignDaily(context.Background(), camp.ID)
	require.NoError(t, err)
	require.Len(t, daily, 2)

	assert.Equal(t, 3, daily[0].Date)
	assert.InDelta(t, 4.0, daily[0].SpentTotal, 1e-9) // 2*1 + 1*2
	assert.Equal(t, 7, daily[1].Date)
	assert.InDelta(t, 5.0, daily[1].SpentTotal, 1e-9)
	assert.Zero(t, daily[1].Conversion)
}

func TestAdvertiserTotalsIncludeDeletedCampaigns(t *testing.T) {
	advID := uuid.New()
	live := reportCampaign(advID, 1, 2)
	deleted := reportCampaign(advID, 2, 4)
	deleted.IsDeleted = true

	store := &fakeStore{
		advertisers: map[uuid.UUID]models.Advertiser{advID: {ID: advID, Name: "A"}},
		campaigns: map[uuid.UUID]models.Campaign{
			live.ID:    live,
			deleted.ID: deleted,
		},
		counts: map[uuid.UUID]db.EventCounts{
			live.ID:    {Impressions: 10, Clicks: 2},
			deleted.ID: {Impressions: 5, Clicks: 1},
		},
	}

	stats, err := newTestReporter(store).AdvertiserTotals(context.Background(), advID)
	require.NoError(t, err)

	assert.Equal(t, 15, stats.ImpressionsCount, "tombstoned campaigns stay in advertiser rollups")
	assert.Equal(t, 3, stats.ClicksCount)
	assert.InDelta(t, 10*1.0+5*2.0, stats.SpentImpressions, 1e-9)
	assert.InDelta(t, 2*2.0+1*4.0, stats.SpentClicks, 1e-9)
	assert.InDelta(t, 20.0, stats.Conversion, 1e-9)
}

func TestAdvertiserTotalsUnknownAdvertiser(t *testing.T) {
	store := &fakeStore{}
	_, err := newTestReporter(store).AdvertiserTotals(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAdvertiserDailyMergesCampaigns(t *testing.T) {
	advID := uuid.New()
	a := reportCampaign(advID, 1, 10)
	b := reportCampaign(advID, 2, 20)

	store := &fakeStore{
		advertisers: map[uuid.UUID]models.Advertiser{advID: {ID: advID, Name: "A"}},
		campaigns:   map[uuid.UUID]models.Campaign{a.ID: a, b.ID: b},
		daily: []db.DailyEventCounts{
			{CampaignID: a.ID, Day: 2, Impressions: 3, Clicks: 1},
			{CampaignID: b.ID, Day: 2, Impressions: 1, Clicks: 1},
			{CampaignID: b.ID, Day: 5, Impressions: 2, Clicks: 0},
		},
	}

	daily, err := newTestReporter(store).AdvertiserDaily(context.Background(), advID)
	require.NoError(t, err)
	require.Len(t, daily, 2)

	// Day 2 merges both campaigns at their own rates.
	assert.Equal(t, 2, daily[0].Date)
	assert.Equal(t, 4, daily[0].ImpressionsCount)
	assert.Equal(t, 2, daily[0].ClicksCount)
	assert.InDelta(t, 3*1.0+1*2.0, daily[0].SpentImpressions, 1e-9)
	assert.InDelta(t, 1*10.0+1*20.0, daily[0].SpentClicks, 1e-9)

	assert.Equal(t, 5, daily[1].Date)
	assert.Equal(t, 2, daily[1].ImpressionsCount)
}

func TestStatsCacheServesSecondRead(t *testing.T) {
	camp := reportCampaign(uuid.New(), 1, 1)
	store := &fakeStore{
		campaigns: map[uuid.UUID]models.Campaign{camp.ID: camp},
		counts:    map[uuid.UUID]db.EventCounts{camp.ID: {Impressions: 2, Clicks: 1}},
	}

	cache := newTestRedisStore(t)
	rep := NewReporter(store, cache, time.Minute, observability.NewNoOpRegistry(), zap.NewNop())
	ctx := context.Background()

	first, err := rep.CampaignTotals(ctx, camp.ID)
	require.NoError(t, err)

	// Mutate the backing counts; the cached value must win until the
	// version is bumped.
	store.counts[camp.ID] = db.EventCounts{Impressions: 99, Clicks: 99}

	second, err := rep.CampaignTotals(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, cache.BumpCampaignStatsVersion(ctx, camp.ID.String()))
	third, err := rep.CampaignTotals(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, third.ImpressionsCount)
}
