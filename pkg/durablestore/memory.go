package durablestore

import (
	"context"
	"sync"

	"github.com/cuemby/mgs/pkg/types"
)

// Memory is an in-process Store used by grainstore and drainer unit tests.
// It is not exercised in production; it exists so those tests don't need a
// real database or a mock framework.
type Memory struct {
	mu   sync.Mutex
	docs map[string]*types.StateDocument
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]*types.StateDocument)}
}

func tenantedKey(tenant, id string) string {
	return tenant + "\x00" + id
}

// Load implements Store.
func (m *Memory) Load(_ context.Context, id string, tenant string) (*types.StateDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[tenantedKey(tenant, id)]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

// Upsert implements Store.
func (m *Memory) Upsert(_ context.Context, doc *types.StateDocument, tenant string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.docs[tenantedKey(tenant, doc.ID)] = &cp
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, id string, tenant string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, tenantedKey(tenant, id))
	return nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

// Len returns the number of documents currently stored, across all
// tenants. Test-only helper.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}
