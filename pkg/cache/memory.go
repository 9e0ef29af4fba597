package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/mgs/pkg/identity"
	"github.com/cuemby/mgs/pkg/types"
)

// Memory is an in-process Adapter used by grainstore and drainer unit
// tests. It mirrors RedisAdapter's semantics (including the write-counter's
// 1-second expiry and the drain lease's TTL) without a network round trip,
// and it can be told to fail specific operations to exercise the core's
// cache-failure fallback paths. It ignores Write's stateTTL: cached entries
// never expire.
type Memory struct {
	mu       sync.Mutex
	state    map[string]map[string]types.CacheEntry // scopeKey -> field -> entry
	dirty    map[string]map[string]struct{}         // scopeKey -> field set
	counters map[string]*counterEntry
	leases   map[string]time.Time

	// FailWrite/FailMarkDirty, when set, make the corresponding operation
	// return this error instead of succeeding, for exercising the core's
	// CacheFailureFatal fallback.
	FailWrite     error
	FailMarkDirty error
}

type counterEntry struct {
	value     int64
	expiresAt time.Time
}

// NewMemory returns an empty Memory cache adapter.
func NewMemory() *Memory {
	return &Memory{
		state:    make(map[string]map[string]types.CacheEntry),
		dirty:    make(map[string]map[string]struct{}),
		counters: make(map[string]*counterEntry),
		leases:   make(map[string]time.Time),
	}
}

func scopeKey(storage, tenant string) string {
	return storage + "\x00" + tenant
}

// Read implements Adapter.
func (m *Memory) Read(_ context.Context, storage, tenant, entity string) (*types.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.state[scopeKey(storage, tenant)]
	if !ok {
		return nil, nil
	}
	entry, ok := fields[identity.CacheGrainKey(entity)]
	if !ok {
		return nil, nil
	}
	cp := entry
	return &cp, nil
}

// Write implements Adapter.
func (m *Memory) Write(_ context.Context, storage, tenant, entity string, entry types.CacheEntry, _ time.Duration) error {
	if m.FailWrite != nil {
		return m.FailWrite
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopeKey(storage, tenant)
	if m.state[key] == nil {
		m.state[key] = make(map[string]types.CacheEntry)
	}
	m.state[key][identity.CacheGrainKey(entity)] = entry
	return nil
}

// Remove implements Adapter.
func (m *Memory) Remove(_ context.Context, storage, tenant, entity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fields, ok := m.state[scopeKey(storage, tenant)]; ok {
		delete(fields, identity.CacheGrainKey(entity))
	}
}

// MarkDirty implements Adapter.
func (m *Memory) MarkDirty(_ context.Context, storage, tenant, entity string) error {
	if m.FailMarkDirty != nil {
		return m.FailMarkDirty
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopeKey(storage, tenant)
	if m.dirty[key] == nil {
		m.dirty[key] = make(map[string]struct{})
	}
	m.dirty[key][identity.CacheGrainKey(entity)] = struct{}{}
	return nil
}

// ClearDirty implements Adapter.
func (m *Memory) ClearDirty(_ context.Context, storage, tenant, entity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.dirty[scopeKey(storage, tenant)]; ok {
		delete(set, identity.CacheGrainKey(entity))
	}
}

// PopDirty implements Adapter.
func (m *Memory) PopDirty(_ context.Context, storage, tenant string, n int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.dirty[scopeKey(storage, tenant)]
	popped := make([]string, 0, n)
	for field := range set {
		if len(popped) >= n {
			break
		}
		popped = append(popped, field)
		delete(set, field)
	}
	return popped, nil
}

// IncrWriteCounter implements Adapter, including the 1-second TTL applied
// on the 0→1 transition.
func (m *Memory) IncrWriteCounter(_ context.Context, storage string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	c, ok := m.counters[storage]
	if !ok || now.After(c.expiresAt) {
		c = &counterEntry{value: 0, expiresAt: now.Add(time.Second)}
		m.counters[storage] = c
	}
	c.value++
	return c.value, nil
}

// TryAcquireDrainLease implements Adapter.
func (m *Memory) TryAcquireDrainLease(_ context.Context, storage string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if exp, held := m.leases[storage]; held && now.Before(exp) {
		return false, nil
	}
	m.leases[storage] = now.Add(ttl)
	return true, nil
}

// ReleaseDrainLease implements Adapter.
func (m *Memory) ReleaseDrainLease(_ context.Context, storage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.leases, storage)
}

// DirtyMembers is a test helper returning a snapshot of the dirty set.
func (m *Memory) DirtyMembers(storage, tenant string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.dirty[scopeKey(storage, tenant)]
	out := make([]string, 0, len(set))
	for field := range set {
		out = append(out, field)
	}
	return out
}
