package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		cluster  string
		entityID string
		want     string
	}{
		{"simple", "c1", "u/1", "c1_u_1"},
		{"nested key", "c1", "TestState/migration-1", "c1_TestState_migration-1"},
		{"no separator in entity", "c1", "singleton", "c1_singleton"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentID(tt.cluster, tt.entityID))
		})
	}
}

func TestLegacyDocumentID(t *testing.T) {
	assert.Equal(t, "TestState/migration-1", LegacyDocumentID("TestState/migration-1"))
}

func TestCacheGrainKeyRoundTrip(t *testing.T) {
	entity := "u/2"
	key := CacheGrainKey(entity)
	assert.Equal(t, "u_2", key)
	assert.Equal(t, entity, EntityIDFromGrainKey(key))
}

func TestStateMapKey(t *testing.T) {
	assert.Equal(t, "mgs:c1:s1:state", StateMapKey("c1", "s1", ""))
	assert.Equal(t, "mgs:c1:s1:tenant:acme:state", StateMapKey("c1", "s1", "acme"))
}

func TestDirtySetKey(t *testing.T) {
	assert.Equal(t, "mgs:c1:s1:dirty", DirtySetKey("c1", "s1", ""))
	assert.Equal(t, "mgs:c1:s1:tenant:acme:dirty", DirtySetKey("c1", "s1", "acme"))
}

func TestWriteCounterKeyHasNoTenantComponent(t *testing.T) {
	assert.Equal(t, "mgs:c1:s1:wcount", WriteCounterKey("c1", "s1"))
}

func TestDrainLeaseKeyHasNoTenantComponent(t *testing.T) {
	assert.Equal(t, "mgs:c1:s1:drain-lock", DrainLeaseKey("c1", "s1"))
}
