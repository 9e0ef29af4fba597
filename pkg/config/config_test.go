package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mgs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadAppliesDefaultsForUnsetWriteBehindFields(t *testing.T) {
	path := writeTempConfig(t, `
clusterId: c1
storages:
  - name: sessions
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "c1", cfg.ClusterID)
	require.Len(t, cfg.Storages, 1)

	opts := cfg.Storages[0].GrainstoreOptions()
	assert.Equal(t, 100, opts.WriteBehind.Threshold)
	assert.Equal(t, 50, opts.WriteBehind.BatchSize)
	assert.True(t, opts.WriteBehind.EnableWriteBehind)
	assert.True(t, opts.CheckConcurrency)
}

func TestLoadHonorsExplicitWriteBehindOverrides(t *testing.T) {
	path := writeTempConfig(t, `
clusterId: c1
storages:
  - name: sessions
    checkConcurrency: false
    writeBehind:
      threshold: 0
      enableReadThrough: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	opts := cfg.Storages[0].GrainstoreOptions()
	assert.Equal(t, 0, opts.WriteBehind.Threshold)
	assert.False(t, opts.WriteBehind.EnableReadThrough)
	assert.False(t, opts.CheckConcurrency)
	// Unset fields still fall back to defaults.
	assert.Equal(t, 50, opts.WriteBehind.BatchSize)
}

func TestLoadRejectsMissingClusterID(t *testing.T) {
	path := writeTempConfig(t, `
storages:
  - name: sessions
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNoStorages(t *testing.T) {
	path := writeTempConfig(t, `
clusterId: c1
storages: []
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMongoWithoutURI(t *testing.T) {
	path := writeTempConfig(t, `
clusterId: c1
durableStore:
  kind: mongo
storages:
  - name: sessions
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadDefaultsBoltDataDir(t *testing.T) {
	path := writeTempConfig(t, `
clusterId: c1
durableStore:
  kind: bolt
storages:
  - name: sessions
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.DurableStore.Bolt.DataDir)
}

func TestDefaultProducesDocumentedDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "bolt", cfg.DurableStore.Kind)
	require.Len(t, cfg.Storages, 1)
	assert.Equal(t, "default", cfg.Storages[0].Name)
}
