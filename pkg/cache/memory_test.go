package cache

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/mgs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadMiss(t *testing.T) {
	m := NewMemory()
	entry, err := m.Read(context.Background(), "s1", "", "u/1")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMemoryWriteThenRead(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	entry := types.CacheEntry{Data: []byte(`{"n":"a"}`), ETag: "e1", LastModified: 1000}
	require.NoError(t, m.Write(ctx, "s1", "", "u/1", entry, 0))

	got, err := m.Read(ctx, "s1", "", "u/1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.ETag, got.ETag)
}

func TestMemoryDirtySetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.MarkDirty(ctx, "s1", "", "u/2"))
	assert.ElementsMatch(t, []string{"u_2"}, m.DirtyMembers("s1", ""))

	m.ClearDirty(ctx, "s1", "", "u/2")
	assert.Empty(t, m.DirtyMembers("s1", ""))
}

func TestMemoryPopDirtyRemovesMembers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.MarkDirty(ctx, "s1", "", "a/1"))
	require.NoError(t, m.MarkDirty(ctx, "s1", "", "a/2"))
	require.NoError(t, m.MarkDirty(ctx, "s1", "", "a/3"))

	popped, err := m.PopDirty(ctx, "s1", "", 2)
	require.NoError(t, err)
	assert.Len(t, popped, 2)
	assert.Len(t, m.DirtyMembers("s1", ""), 1)
}

func TestMemoryIncrWriteCounterResetsAfterTTL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	n, err := m.IncrWriteCounter(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = m.IncrWriteCounter(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Force the 1-second window to have expired.
	m.counters["s1"].expiresAt = time.Now().Add(-time.Millisecond)

	n, err = m.IncrWriteCounter(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryDrainLeaseExclusivity(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	got, err := m.TryAcquireDrainLease(ctx, "s1", time.Minute)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = m.TryAcquireDrainLease(ctx, "s1", time.Minute)
	require.NoError(t, err)
	assert.False(t, got, "a second concurrent acquire must fail while the lease is held")

	m.ReleaseDrainLease(ctx, "s1")

	got, err = m.TryAcquireDrainLease(ctx, "s1", time.Minute)
	require.NoError(t, err)
	assert.True(t, got, "acquiring after release must succeed")
}

func TestMemoryWriteFailureInjection(t *testing.T) {
	m := NewMemory()
	m.FailWrite = assert.AnError
	err := m.Write(context.Background(), "s1", "", "u/1", types.CacheEntry{}, 0)
	assert.ErrorIs(t, err, assert.AnError)
}
