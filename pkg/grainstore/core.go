/*
Package grainstore implements the Grain Storage Core: the public
READ/WRITE/CLEAR operations that sit between a host runtime's actors and
the durable store + cache tiers, deciding between write-through and
write-behind persistence and enforcing optimistic concurrency.
*/
package grainstore

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/mgs/pkg/cache"
	"github.com/cuemby/mgs/pkg/durablestore"
	"github.com/cuemby/mgs/pkg/etag"
	"github.com/cuemby/mgs/pkg/identity"
	"github.com/cuemby/mgs/pkg/log"
	"github.com/cuemby/mgs/pkg/metrics"
	"github.com/cuemby/mgs/pkg/types"
)

// Core is a single storage-name's Grain Storage Core: one instance per
// (cluster, storage-name), shared by every entity within it. It is safe
// for concurrent use by multiple entities. It does not serialize two
// concurrent WRITEs for the *same* entity; the host runtime guarantees
// single-threaded activation per entity already.
type Core struct {
	clusterID       string
	storageName     string
	payloadTypeName string

	durable      durablestore.Store
	cacheAdapter cache.Adapter // nil if the cache tier is not configured

	opts Options
}

// New constructs a Core for one storage-name. cacheAdapter may be nil, in
// which case every READ loads from the durable store and every WRITE goes
// through it; the write-behind and read-through options are then moot.
// payloadTypeName is carried in the cache envelope's typeString field; it
// has no effect on the durable store, which always treats Data as opaque
// bytes.
func New(clusterID, storageName, payloadTypeName string, durable durablestore.Store, cacheAdapter cache.Adapter, opts Options) *Core {
	return &Core{
		clusterID:       clusterID,
		storageName:     storageName,
		payloadTypeName: payloadTypeName,
		durable:         durable,
		cacheAdapter:    cacheAdapter,
		opts:            opts,
	}
}

// StorageName returns the storage-name this Core was constructed for, the
// name that scopes its cache namespace.
func (c *Core) StorageName() string {
	return c.storageName
}

func (c *Core) dbTenant() string {
	if c.opts.UseTenantPerStorage {
		return c.storageName
	}
	return ""
}

// Read populates slot with the entity's current state: cache first when
// read-through is enabled, then the durable store by canonical id, then by
// legacy id (migrating on a hit). It never returns an error: on an
// unrecoverable failure it logs and leaves slot however far it got
// populated, and the host retries naturally on the next activation tick.
func (c *Core) Read(ctx context.Context, entityID string, slot *types.StateSlot) {
	timer := metrics.NewTimer()
	logger := log.WithStorage(c.storageName)
	tenant := tenantFromContext(ctx)
	dbTenant := c.dbTenant()

	if c.opts.WriteBehind.EnableReadThrough && c.cacheAdapter != nil {
		entry, err := c.cacheAdapter.Read(ctx, c.storageName, tenant, entityID)
		if err != nil {
			metrics.CacheErrorsTotal.WithLabelValues(c.storageName, "read").Inc()
			logger.Warn().Err(err).Str("entity", entityID).Msg("cache read failed, falling back to durable store")
		} else if entry != nil {
			slot.Data = entry.Data
			slot.ETag = entry.ETag
			slot.RecordExists = true
			metrics.ReadsTotal.WithLabelValues(c.storageName, "cache_hit").Inc()
			timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "read")
			return
		}
	}

	canonicalID := identity.DocumentID(c.clusterID, entityID)
	doc, err := c.durable.Load(ctx, canonicalID, dbTenant)
	if err != nil {
		logger.Error().Err(err).Str("entity", entityID).Msg("durable load failed")
		timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "read")
		return
	}
	if doc != nil {
		populateSlot(slot, doc)
		if c.opts.WriteBehind.EnableReadThrough && c.cacheAdapter != nil {
			c.warmCache(ctx, tenant, entityID, doc)
		}
		metrics.ReadsTotal.WithLabelValues(c.storageName, "durable_hit").Inc()
		timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "read")
		return
	}

	legacyID := identity.LegacyDocumentID(entityID)
	legacyDoc, err := c.durable.Load(ctx, legacyID, dbTenant)
	if err != nil {
		logger.Error().Err(err).Str("entity", entityID).Msg("legacy durable load failed")
		timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "read")
		return
	}
	if legacyDoc != nil {
		populateSlot(slot, legacyDoc)
		c.migrate(ctx, canonicalID, legacyID, legacyDoc, dbTenant)
		metrics.ReadsTotal.WithLabelValues(c.storageName, "migrated").Inc()
		timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "read")
		return
	}

	slot.Reset()
	metrics.ReadsTotal.WithLabelValues(c.storageName, "miss").Inc()
	timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "read")
}

// migrate performs the legacy-id migration: store under the canonical id,
// then delete the legacy id. Failures are logged, not returned; the
// caller's slot is already populated from legacyDoc, and the next READ
// will simply re-run this migration (idempotent: both ids deserialize to
// the same payload until the delete eventually succeeds).
func (c *Core) migrate(ctx context.Context, canonicalID, legacyID string, legacyDoc *types.StateDocument, dbTenant string) {
	logger := log.WithStorage(c.storageName)
	canonicalDoc := &types.StateDocument{
		ID:           canonicalID,
		Data:         legacyDoc.Data,
		LastModified: legacyDoc.LastModified,
	}
	if err := c.durable.Upsert(ctx, canonicalDoc, dbTenant); err != nil {
		logger.Error().Err(err).Str("legacy_id", legacyID).Msg("legacy migration upsert failed")
		return
	}
	if err := c.durable.Delete(ctx, legacyID, dbTenant); err != nil {
		logger.Warn().Err(err).Str("legacy_id", legacyID).Msg("legacy migration delete failed, duplicate will persist until next read")
	}
}

func (c *Core) warmCache(ctx context.Context, tenant, entityID string, doc *types.StateDocument) {
	e := etag.Compute(doc.LastModifiedMs(), doc.Data)
	entry := types.CacheEntry{
		Data:         doc.Data,
		ETag:         e,
		LastModified: doc.LastModifiedMs(),
		TypeString:   c.payloadTypeName,
	}
	if err := c.cacheAdapter.Write(ctx, c.storageName, tenant, entityID, entry, c.opts.WriteBehind.StateTTL()); err != nil {
		metrics.CacheErrorsTotal.WithLabelValues(c.storageName, "write").Inc()
		log.WithStorage(c.storageName).Warn().Err(err).Str("entity", entityID).Msg("cache warm failed")
	}
}

func populateSlot(slot *types.StateSlot, doc *types.StateDocument) {
	slot.Data = doc.Data
	slot.ETag = etag.Compute(doc.LastModifiedMs(), doc.Data)
	slot.RecordExists = true
}

// Write persists slot.Data for the entity. Under surge (the cluster-wide
// write counter above the configured threshold) it writes to the cache and
// marks the entity dirty for the drainer; otherwise it upserts to the
// durable store directly, enforcing the ETag check when configured. On
// success slot carries the new ETag and RecordExists=true.
func (c *Core) Write(ctx context.Context, entityID string, slot *types.StateSlot) error {
	timer := metrics.NewTimer()
	logger := log.WithStorage(c.storageName)
	tenant := tenantFromContext(ctx)
	dbTenant := c.dbTenant()

	now := time.Now()
	data := etag.Canonicalize(slot.Data)
	newEtag := etag.Compute(now.UnixMilli(), data)
	canonicalID := identity.DocumentID(c.clusterID, entityID)

	if c.cacheAdapter != nil && c.opts.WriteBehind.EnableWriteBehind {
		count, err := c.cacheAdapter.IncrWriteCounter(ctx, c.storageName)
		if err != nil {
			metrics.CacheErrorsTotal.WithLabelValues(c.storageName, "incr").Inc()
			logger.Warn().Err(err).Msg("write counter increment failed, treating as non-overflow")
			count = 0
		}

		if count > int64(c.opts.WriteBehind.Threshold) {
			entry := types.CacheEntry{Data: data, ETag: newEtag, LastModified: now.UnixMilli(), TypeString: c.payloadTypeName}
			writeErr := c.cacheAdapter.Write(ctx, c.storageName, tenant, entityID, entry, c.opts.WriteBehind.StateTTL())
			var markErr error
			if writeErr == nil {
				markErr = c.cacheAdapter.MarkDirty(ctx, c.storageName, tenant, entityID)
			}
			if writeErr == nil && markErr == nil {
				slot.Data = data
				slot.ETag = newEtag
				slot.RecordExists = true
				metrics.WriteOverflowTotal.WithLabelValues(c.storageName).Inc()
				metrics.WritesTotal.WithLabelValues(c.storageName, "write_behind").Inc()
				timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "write")
				return nil
			}
			if writeErr != nil {
				metrics.CacheErrorsTotal.WithLabelValues(c.storageName, "write").Inc()
				logger.Error().Err(writeErr).Str("entity", entityID).Msg("write-behind cache write failed, falling through to write-through")
			} else {
				metrics.CacheErrorsTotal.WithLabelValues(c.storageName, "mark_dirty").Inc()
				logger.Error().Err(markErr).Str("entity", entityID).Msg("mark-dirty failed, falling through to write-through")
			}
			// fall through to write-through below
		}
	}

	if c.opts.CheckConcurrency && slot.RecordExists && slot.ETag != "" {
		current, err := c.durable.Load(ctx, canonicalID, dbTenant)
		if err != nil {
			timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "write")
			return fmt.Errorf("grainstore: concurrency check load failed: %w", err)
		}
		if current != nil {
			currentEtag := etag.Compute(current.LastModifiedMs(), current.Data)
			if !etag.Equal(currentEtag, slot.ETag) {
				metrics.ConcurrencyConflictsTotal.WithLabelValues(c.storageName).Inc()
				timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "write")
				return ErrConcurrencyConflict
			}
		}
	}

	doc := &types.StateDocument{ID: canonicalID, Data: data, LastModified: now}
	if err := c.durable.Upsert(ctx, doc, dbTenant); err != nil {
		timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "write")
		return fmt.Errorf("grainstore: durable upsert failed: %w", err)
	}
	slot.Data = data
	slot.ETag = newEtag
	slot.RecordExists = true
	metrics.WritesTotal.WithLabelValues(c.storageName, "write_through").Inc()

	if c.cacheAdapter != nil && (c.opts.WriteBehind.EnableReadThrough || c.opts.WriteBehind.EnableWriteBehind) {
		entry := types.CacheEntry{Data: data, ETag: newEtag, LastModified: now.UnixMilli(), TypeString: c.payloadTypeName}
		if err := c.cacheAdapter.Write(ctx, c.storageName, tenant, entityID, entry, c.opts.WriteBehind.StateTTL()); err != nil {
			metrics.CacheErrorsTotal.WithLabelValues(c.storageName, "write").Inc()
			logger.Warn().Err(err).Str("entity", entityID).Msg("post-write cache refresh failed")
		}
		c.cacheAdapter.ClearDirty(ctx, c.storageName, tenant, entityID)
	}

	timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "write")
	return nil
}

// Clear deletes the entity's durable document and drops its cache entry
// and dirty marker, then resets slot to the absent state.
func (c *Core) Clear(ctx context.Context, entityID string, slot *types.StateSlot) error {
	timer := metrics.NewTimer()
	canonicalID := identity.DocumentID(c.clusterID, entityID)
	dbTenant := c.dbTenant()

	if err := c.durable.Delete(ctx, canonicalID, dbTenant); err != nil {
		timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "clear")
		return fmt.Errorf("grainstore: durable delete failed: %w", err)
	}

	if c.cacheAdapter != nil {
		tenant := tenantFromContext(ctx)
		c.cacheAdapter.Remove(ctx, c.storageName, tenant, entityID)
		c.cacheAdapter.ClearDirty(ctx, c.storageName, tenant, entityID)
	}

	slot.Reset()
	metrics.ClearsTotal.WithLabelValues(c.storageName).Inc()
	timer.ObserveDurationVec(metrics.OperationDuration, c.storageName, "clear")
	return nil
}
