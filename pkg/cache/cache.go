/*
Package cache implements the Cache Adapter: the coalescing write-behind
buffer and surge-detection surface the Grain Storage Core uses to absorb
write bursts ahead of the durable store.

Read-side operations are best-effort: transport errors are caught, logged,
and reported as a miss so the core can fall back to the durable path.
MarkDirty and the write-behind write itself re-raise on failure so the
core can fall through to the write-through path instead of silently
losing a write.
*/
package cache

import (
	"context"
	"time"

	"github.com/cuemby/mgs/pkg/types"
)

// Adapter is the key/value cache contract the Grain Storage Core and the
// Drainer depend on. storage and entity identify the grain; tenant is the
// request-scoped cache tenant from pkg/identity, empty for none.
type Adapter interface {
	// Read returns the cached entry for (storage, tenant, entity), or
	// (nil, nil) on a miss, including on a swallowed transport error or an
	// envelope that does not decode. The envelope's type string is returned
	// as-is in CacheEntry.TypeString; it is not resolved to a Go type.
	Read(ctx context.Context, storage, tenant, entity string) (*types.CacheEntry, error)

	// Write sets the cached entry for (storage, tenant, entity). If
	// stateTTL is positive, it is (re)applied to the whole state map on
	// every write, so a hot entity keeps its entire storage map alive.
	Write(ctx context.Context, storage, tenant, entity string, entry types.CacheEntry, stateTTL time.Duration) error

	// Remove deletes the cached entry. Errors are logged and swallowed.
	Remove(ctx context.Context, storage, tenant, entity string)

	// MarkDirty adds entity to the dirty set for (storage, tenant). Errors
	// are re-raised: this is the write-behind path's durability guarantee.
	MarkDirty(ctx context.Context, storage, tenant, entity string) error

	// ClearDirty removes entity from the dirty set. Errors are logged and
	// swallowed.
	ClearDirty(ctx context.Context, storage, tenant, entity string)

	// PopDirty atomically removes and returns up to n members of the dirty
	// set for (storage, tenant). Members are gone from the set the instant
	// they are returned, even if the caller crashes before acting on them.
	PopDirty(ctx context.Context, storage, tenant string, n int) ([]string, error)

	// IncrWriteCounter atomically increments the cluster-wide write
	// counter for storage and returns its new value. On the 0→1 transition
	// it applies a 1-second expiration. A transport error is treated as a
	// non-overflow signal: it returns 0, nil.
	IncrWriteCounter(ctx context.Context, storage string) (int64, error)

	// TryAcquireDrainLease attempts to atomically acquire the per-storage
	// drain lease for up to ttl, returning true on success.
	TryAcquireDrainLease(ctx context.Context, storage string, ttl time.Duration) (bool, error)

	// ReleaseDrainLease unconditionally deletes the drain lease key.
	ReleaseDrainLease(ctx context.Context, storage string)
}
