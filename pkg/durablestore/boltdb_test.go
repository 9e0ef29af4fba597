package durablestore

import (
	"context"
	"testing"

	"github.com/cuemby/mgs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBoltStoreLoadMiss(t *testing.T) {
	store := newTestBoltStore(t)
	doc, err := store.Load(context.Background(), "missing", "")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestBoltStoreUpsertAndLoad(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()

	doc := &types.StateDocument{ID: "c1_u_1", Data: []byte(`{"n":"a","v":1}`)}
	require.NoError(t, store.Upsert(ctx, doc, ""))

	got, err := store.Load(ctx, "c1_u_1", "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Data, got.Data)
}

func TestBoltStoreUpsertIsReplace(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &types.StateDocument{ID: "x", Data: []byte("1")}, ""))
	require.NoError(t, store.Upsert(ctx, &types.StateDocument{ID: "x", Data: []byte("2")}, ""))

	got, err := store.Load(ctx, "x", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got.Data)
}

func TestBoltStoreDeleteIsIdempotent(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "never-existed", ""))

	require.NoError(t, store.Upsert(ctx, &types.StateDocument{ID: "y", Data: []byte("1")}, ""))
	require.NoError(t, store.Delete(ctx, "y", ""))
	require.NoError(t, store.Delete(ctx, "y", ""))

	got, err := store.Load(ctx, "y", "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBoltStoreTenantIsolation(t *testing.T) {
	store := newTestBoltStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &types.StateDocument{ID: "shared-id", Data: []byte("tenant-a")}, "tenant-a"))
	require.NoError(t, store.Upsert(ctx, &types.StateDocument{ID: "shared-id", Data: []byte("tenant-b")}, "tenant-b"))

	gotA, err := store.Load(ctx, "shared-id", "tenant-a")
	require.NoError(t, err)
	gotB, err := store.Load(ctx, "shared-id", "tenant-b")
	require.NoError(t, err)

	assert.Equal(t, []byte("tenant-a"), gotA.Data)
	assert.Equal(t, []byte("tenant-b"), gotB.Data)
}
