package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cuemby/mgs/pkg/cache"
	"github.com/cuemby/mgs/pkg/durablestore"
	"github.com/cuemby/mgs/pkg/grainstore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	core := grainstore.New("c1", "TestState", "TestState", durablestore.NewMemory(), cache.NewMemory(), grainstore.DefaultOptions())
	return NewServer(map[string]*grainstore.Core{"TestState": core})
}

func TestServerWriteThenReadRoundTrip(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	writeResp, err := s.Write(ctx, &WriteRequest{
		Storage:  "TestState",
		EntityID: "TestState/a",
		Slot:     StateSlotMessage{Data: []byte(`{"v":1}`)},
	})
	require.NoError(t, err)
	assert.False(t, writeResp.ConcurrencyConflict)
	assert.NotEmpty(t, writeResp.Slot.ETag)

	readResp, err := s.Read(ctx, &ReadRequest{Storage: "TestState", EntityID: "TestState/a"})
	require.NoError(t, err)
	assert.True(t, readResp.Slot.RecordExists)
	assert.JSONEq(t, `{"v":1}`, string(readResp.Slot.Data))
}

func TestServerReadUnknownStorageReturnsNotFound(t *testing.T) {
	s := newTestServer(t)
	_, err := s.Read(context.Background(), &ReadRequest{Storage: "NoSuchStorage", EntityID: "x/1"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServerClearThenReadReturnsAbsent(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.Write(ctx, &WriteRequest{
		Storage:  "TestState",
		EntityID: "TestState/b",
		Slot:     StateSlotMessage{Data: []byte(`{"v":1}`)},
	})
	require.NoError(t, err)

	_, err = s.Clear(ctx, &ClearRequest{Storage: "TestState", EntityID: "TestState/b"})
	require.NoError(t, err)

	readResp, err := s.Read(ctx, &ReadRequest{Storage: "TestState", EntityID: "TestState/b"})
	require.NoError(t, err)
	assert.False(t, readResp.Slot.RecordExists)
}
