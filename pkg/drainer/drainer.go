/*
Package drainer implements the background reconciliation loop that moves
dirty write-behind entries from the Cache Adapter into the durable store:
one ticker per registered storage-name, gated by a cluster-wide drain
lease so only one process drains a given storage at a time.
*/
package drainer

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/mgs/pkg/cache"
	"github.com/cuemby/mgs/pkg/durablestore"
	"github.com/cuemby/mgs/pkg/etag"
	"github.com/cuemby/mgs/pkg/grainstore"
	"github.com/cuemby/mgs/pkg/identity"
	"github.com/cuemby/mgs/pkg/log"
	"github.com/cuemby/mgs/pkg/metrics"
	"github.com/cuemby/mgs/pkg/types"
	"github.com/rs/zerolog"
)

// Registration binds one storage-name to the cache and durable-store
// instances its drain cycles run against.
type Registration struct {
	StorageName         string
	Cache               cache.Adapter
	Durable             durablestore.Store
	Options             grainstore.WriteBehindOptions
	UseTenantPerStorage bool
}

func (r *Registration) dbTenant() string {
	if r.UseTenantPerStorage {
		return r.StorageName
	}
	return ""
}

// Outcome classifies how a single drain cycle ended.
type Outcome string

const (
	OutcomeDrained          Outcome = "drained"
	OutcomeEmpty            Outcome = "empty"
	OutcomeLeaseUnavailable Outcome = "lease_unavailable"
)

// Result summarizes one drain cycle.
type Result struct {
	Outcome Outcome
	Drained int
	Failed  int
}

// Drainer owns the set of registered storages and their periodic drain
// loops. It is safe for concurrent Register calls and concurrent DrainOnce
// invocations across distinct storage-names. A cycle read-locks the
// registry only to look up its Registration; Register stores a new
// Registration rather than mutating the one a running cycle holds.
type Drainer struct {
	clusterID string

	mu            sync.RWMutex
	registrations map[string]*Registration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New returns an empty Drainer for clusterID.
func New(clusterID string) *Drainer {
	return &Drainer{
		clusterID:     clusterID,
		registrations: make(map[string]*Registration),
		stopCh:        make(chan struct{}),
	}
}

// Register adds or replaces a storage-name's drain configuration. Safe to
// call before or after Start.
func (d *Drainer) Register(reg Registration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registrations[reg.StorageName] = &reg
}

// Start launches one background loop per currently registered storage.
// Storages registered after Start are not picked up. A Drainer cannot be
// restarted: Stop closes its stop channel for good, so loops launched by a
// later Start exit at once.
func (d *Drainer) Start() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for name := range d.registrations {
		d.wg.Add(1)
		go d.runStorage(name)
	}
}

// Stop signals every loop to exit and waits for them to return.
func (d *Drainer) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

func (d *Drainer) runStorage(storageName string) {
	defer d.wg.Done()

	d.mu.RLock()
	reg := d.registrations[storageName]
	d.mu.RUnlock()
	interval := reg.Options.DrainInterval()
	if interval <= 0 {
		interval = 5 * time.Second
	}

	logger := log.WithComponent("drainer").With().Str("storage", storageName).Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Msg("drain loop started")
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			result, err := d.DrainOnce(ctx, storageName)
			cancel()
			if err != nil {
				logger.Error().Err(err).Msg("drain cycle failed")
				continue
			}
			if result.Outcome == OutcomeDrained {
				logger.Debug().Int("drained", result.Drained).Int("failed", result.Failed).Msg("drain cycle complete")
			}
		case <-d.stopCh:
			logger.Info().Msg("drain loop stopped")
			return
		}
	}
}

// DrainOnce runs a single drain cycle for storageName: acquire the
// cluster-wide lease, pop up to BatchSize dirty entries, persist each to
// the durable store, refresh its cache entry, and release the lease.
// Entries that fail to persist are re-marked dirty for the next cycle.
func (d *Drainer) DrainOnce(ctx context.Context, storageName string) (Result, error) {
	d.mu.RLock()
	reg, ok := d.registrations[storageName]
	d.mu.RUnlock()
	if !ok {
		return Result{}, nil
	}

	timer := metrics.NewTimer()
	logger := log.WithComponent("drainer").With().Str("storage", storageName).Logger()

	acquired, err := reg.Cache.TryAcquireDrainLease(ctx, storageName, reg.Options.DrainLockTTL())
	if err != nil {
		metrics.DrainCyclesTotal.WithLabelValues(storageName, string(OutcomeLeaseUnavailable)).Inc()
		return Result{Outcome: OutcomeLeaseUnavailable}, err
	}
	if !acquired {
		metrics.DrainCyclesTotal.WithLabelValues(storageName, string(OutcomeLeaseUnavailable)).Inc()
		return Result{Outcome: OutcomeLeaseUnavailable}, nil
	}
	defer reg.Cache.ReleaseDrainLease(ctx, storageName)

	grainKeys, err := reg.Cache.PopDirty(ctx, storageName, "", reg.Options.BatchSize)
	if err != nil {
		metrics.DrainCyclesTotal.WithLabelValues(storageName, string(OutcomeEmpty)).Inc()
		timer.ObserveDurationVec(metrics.DrainCycleDuration, storageName)
		return Result{Outcome: OutcomeEmpty}, err
	}
	if len(grainKeys) == 0 {
		metrics.DrainCyclesTotal.WithLabelValues(storageName, string(OutcomeEmpty)).Inc()
		timer.ObserveDurationVec(metrics.DrainCycleDuration, storageName)
		return Result{Outcome: OutcomeEmpty}, nil
	}

	var drained, failed int
	dbTenant := reg.dbTenant()
	for _, grainKey := range grainKeys {
		entityID := identity.EntityIDFromGrainKey(grainKey)
		switch d.drainOne(ctx, reg, entityID, dbTenant, logger) {
		case drainPersisted:
			drained++
		case drainFailed:
			failed++
		case drainVanished:
		}
	}

	metrics.DrainedKeysTotal.WithLabelValues(storageName).Add(float64(drained))
	metrics.DrainFailuresTotal.WithLabelValues(storageName).Add(float64(failed))
	metrics.DrainCyclesTotal.WithLabelValues(storageName, string(OutcomeDrained)).Inc()
	timer.ObserveDurationVec(metrics.DrainCycleDuration, storageName)
	return Result{Outcome: OutcomeDrained, Drained: drained, Failed: failed}, nil
}

type drainOutcome int

const (
	drainPersisted drainOutcome = iota
	drainVanished
	drainFailed
)

// drainOne persists a single dirty entity to the durable store and
// refreshes its cache entry with the new etag and last-modified. A dirty
// marker whose cache entry has vanished is cleared and skipped; there is
// nothing left to persist. On failure the entity is re-marked dirty so
// the next cycle retries it.
func (d *Drainer) drainOne(ctx context.Context, reg *Registration, entityID, dbTenant string, logger zerolog.Logger) drainOutcome {
	entry, err := reg.Cache.Read(ctx, reg.StorageName, "", entityID)
	if err != nil {
		logger.Error().Err(err).Str("entity", entityID).Msg("cache read failed during drain, re-marking dirty")
		reg.Cache.MarkDirty(ctx, reg.StorageName, "", entityID)
		return drainFailed
	}
	if entry == nil {
		logger.Debug().Str("entity", entityID).Msg("dirty entry vanished from cache, nothing to persist")
		reg.Cache.ClearDirty(ctx, reg.StorageName, "", entityID)
		return drainVanished
	}

	now := time.Now()
	doc := &types.StateDocument{
		ID:           identity.DocumentID(d.clusterID, entityID),
		Data:         entry.Data,
		LastModified: now,
	}
	if err := reg.Durable.Upsert(ctx, doc, dbTenant); err != nil {
		logger.Error().Err(err).Str("entity", entityID).Msg("drain upsert failed, re-marking dirty")
		reg.Cache.MarkDirty(ctx, reg.StorageName, "", entityID)
		return drainFailed
	}

	refreshed := types.CacheEntry{
		Data:         entry.Data,
		ETag:         etag.Compute(now.UnixMilli(), entry.Data),
		LastModified: now.UnixMilli(),
		TypeString:   entry.TypeString,
	}
	if err := reg.Cache.Write(ctx, reg.StorageName, "", entityID, refreshed, reg.Options.StateTTL()); err != nil {
		logger.Warn().Err(err).Str("entity", entityID).Msg("post-drain cache refresh failed")
	}
	reg.Cache.ClearDirty(ctx, reg.StorageName, "", entityID)
	return drainPersisted
}
