// Package drainer's drain cycle, per registered storage-name:
//
//  1. TryAcquireDrainLease: skip this cycle if another process holds it.
//  2. PopDirty up to BatchSize entries.
//  3. For each: Read the cached entry, Upsert it to the durable store.
//  4. On success, refresh the cache entry's ETag and ClearDirty.
//  5. On failure, MarkDirty again so the next cycle retries it.
//  6. ReleaseDrainLease once the cycle (not just the batch) completes.
//
// The lease is held for the whole cycle and is not renewed mid-cycle;
// DrainLockTTLSec must exceed the time a full batch takes to drain.
package drainer
