package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cuemby/mgs/pkg/identity"
	"github.com/cuemby/mgs/pkg/log"
	"github.com/cuemby/mgs/pkg/types"
	"github.com/redis/go-redis/v9"
)

const drainLeaseValue = "locked"

var cacheLogger = log.WithComponent("cache")

// RedisAdapter is the production Cache Adapter, backed by
// github.com/redis/go-redis/v9: a per-(storage,tenant) hash for state, a
// set for dirty membership, a cluster-wide counter, and a drain lease key.
type RedisAdapter struct {
	client    redis.UniversalClient
	clusterID string
}

// NewRedisAdapter wraps an already-connected redis client.
func NewRedisAdapter(client redis.UniversalClient, clusterID string) *RedisAdapter {
	return &RedisAdapter{client: client, clusterID: clusterID}
}

// Read implements Adapter.
func (r *RedisAdapter) Read(ctx context.Context, storage, tenant, entity string) (*types.CacheEntry, error) {
	field := identity.CacheGrainKey(entity)
	raw, err := r.client.HGet(ctx, identity.StateMapKey(r.clusterID, storage, tenant), field).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		cacheLogger.Warn().Err(err).Str("storage", storage).Str("entity", entity).Msg("cache read failed, treating as miss")
		return nil, nil
	}

	var env types.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		cacheLogger.Warn().Err(err).Str("storage", storage).Str("entity", entity).Msg("cache envelope decode failed, treating as miss")
		return nil, nil
	}

	return &types.CacheEntry{
		Data:         []byte(env.SerializedData),
		ETag:         env.ETag,
		LastModified: env.LastModified,
		TypeString:   env.TypeString,
	}, nil
}

// Write implements Adapter.
func (r *RedisAdapter) Write(ctx context.Context, storage, tenant, entity string, entry types.CacheEntry, stateTTL time.Duration) error {
	env := types.Envelope{
		SerializedData: string(entry.Data),
		TypeString:     entry.TypeString,
		ETag:           entry.ETag,
		LastModified:   entry.LastModified,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}

	field := identity.CacheGrainKey(entity)
	key := identity.StateMapKey(r.clusterID, storage, tenant)
	if err := r.client.HSet(ctx, key, field, raw).Err(); err != nil {
		return err
	}
	if stateTTL > 0 {
		if err := r.client.Expire(ctx, key, stateTTL).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Remove implements Adapter.
func (r *RedisAdapter) Remove(ctx context.Context, storage, tenant, entity string) {
	field := identity.CacheGrainKey(entity)
	key := identity.StateMapKey(r.clusterID, storage, tenant)
	if err := r.client.HDel(ctx, key, field).Err(); err != nil {
		cacheLogger.Warn().Err(err).Str("storage", storage).Str("entity", entity).Msg("cache remove failed")
	}
}

// MarkDirty implements Adapter.
func (r *RedisAdapter) MarkDirty(ctx context.Context, storage, tenant, entity string) error {
	field := identity.CacheGrainKey(entity)
	key := identity.DirtySetKey(r.clusterID, storage, tenant)
	return r.client.SAdd(ctx, key, field).Err()
}

// ClearDirty implements Adapter.
func (r *RedisAdapter) ClearDirty(ctx context.Context, storage, tenant, entity string) {
	field := identity.CacheGrainKey(entity)
	key := identity.DirtySetKey(r.clusterID, storage, tenant)
	if err := r.client.SRem(ctx, key, field).Err(); err != nil {
		cacheLogger.Warn().Err(err).Str("storage", storage).Str("entity", entity).Msg("clear dirty failed")
	}
}

// PopDirty implements Adapter.
func (r *RedisAdapter) PopDirty(ctx context.Context, storage, tenant string, n int) ([]string, error) {
	key := identity.DirtySetKey(r.clusterID, storage, tenant)
	members, err := r.client.SPopN(ctx, key, int64(n)).Result()
	if err != nil {
		return nil, err
	}
	return members, nil
}

// IncrWriteCounter implements Adapter.
func (r *RedisAdapter) IncrWriteCounter(ctx context.Context, storage string) (int64, error) {
	key := identity.WriteCounterKey(r.clusterID, storage)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		cacheLogger.Warn().Err(err).Str("storage", storage).Msg("write counter increment failed, treating as non-overflow")
		return 0, nil
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, time.Second).Err(); err != nil {
			cacheLogger.Warn().Err(err).Str("storage", storage).Msg("write counter expiry set failed")
		}
	}
	return count, nil
}

// TryAcquireDrainLease implements Adapter.
func (r *RedisAdapter) TryAcquireDrainLease(ctx context.Context, storage string, ttl time.Duration) (bool, error) {
	key := identity.DrainLeaseKey(r.clusterID, storage)
	return r.client.SetNX(ctx, key, drainLeaseValue, ttl).Result()
}

// ReleaseDrainLease implements Adapter.
func (r *RedisAdapter) ReleaseDrainLease(ctx context.Context, storage string) {
	key := identity.DrainLeaseKey(r.clusterID, storage)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		cacheLogger.Warn().Err(err).Str("storage", storage).Msg("drain lease release failed")
	}
}
