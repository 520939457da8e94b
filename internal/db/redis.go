package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore wraps a redis client. It carries two concerns: the
// version-keyed statistics cache and the pub/sub channel that mirrors
// catalog mutations to interested subscribers. Neither is authoritative;
// a missing Redis only disables caching and notifications.
type RedisStore struct {
	Client *redis.Client
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr, password string, database int) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       database,
		}),
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// CampaignStatsVersion returns the campaign's cache version. A campaign
// that was never bumped is at version 0.
func (r *RedisStore) CampaignStatsVersion(ctx context.Context, campaignID string) (int64, error) {
	v, err := r.Client.Get(ctx, "statsver:"+campaignID).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get stats version: %w", err)
	}
	return v, nil
}

// BumpCampaignStatsVersion advances the campaign's cache version.
// Entries cached under older versions are orphaned and expire via TTL;
// nothing ever races a stale value back in.
func (r *RedisStore) BumpCampaignStatsVersion(ctx context.Context, campaignID string) error {
	if err := r.Client.Incr(ctx, "statsver:"+campaignID).Err(); err != nil {
		return fmt.Errorf("bump stats version: %w", err)
	}
	return nil
}

// GetCachedStats returns the cached payload for the given key, or ok =
// false on a miss.
func (r *RedisStore) GetCachedStats(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := r.Client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached stats: %w", err)
	}
	return payload, true, nil
}

// SetCachedStats stores a computed stats payload under the given
// version-qualified key.
func (r *RedisStore) SetCachedStats(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := r.Client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set cached stats: %w", err)
	}
	return nil
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
