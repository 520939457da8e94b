package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &RedisStore{Client: redis.NewClient(&redis.Options{Addr: s.Addr()})}
}

func TestCampaignStatsVersionStartsAtZero(t *testing.T) {
	store := setupTestRedis(t)

	v, err := store.CampaignStatsVersion(context.Background(), "camp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestBumpCampaignStatsVersion(t *testing.T) {
	store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.BumpCampaignStatsVersion(ctx, "camp-1"))
	require.NoError(t, store.BumpCampaignStatsVersion(ctx, "camp-1"))

	v, err := store.CampaignStatsVersion(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// Other campaigns are untouched.
	other, err := store.CampaignStatsVersion(ctx, "camp-2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), other)
}

func TestCachedStatsRoundTrip(t *testing.T) {
	store := setupTestRedis(t)
	ctx := context.Background()

	_, ok, err := store.GetCachedStats(ctx, "stats:campaign:x:v0")
	require.NoError(t, err)
	assert.False(t, ok)

	payload := []byte(`{"impressions_count":3}`)
	require.NoError(t, store.SetCachedStats(ctx, "stats:campaign:x:v0", payload, time.Minute))

	got, ok, err := store.GetCachedStats(ctx, "stats:campaign:x:v0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, got)
}
