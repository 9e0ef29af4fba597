/*
Package config loads the typed mgs.yaml configuration file mgsd is
started with: cluster identity, per-storage write-behind tuning, and the
durable-store/cache connection info. The document is unmarshalled with
gopkg.in/yaml.v3; unset per-storage fields fall back to the documented
defaults in pkg/grainstore.
*/
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/mgs/pkg/grainstore"
)

// WriteBehind mirrors grainstore.WriteBehindOptions in YAML-friendly form.
// Fields absent from the file stay nil and are filled in from
// grainstore.DefaultWriteBehindOptions by Storage.GrainstoreOptions; an
// explicit zero or false in the file is kept.
type WriteBehind struct {
	Threshold         *int  `yaml:"threshold"`
	BatchSize         *int  `yaml:"batchSize"`
	DrainIntervalSec  *int  `yaml:"drainIntervalSec"`
	StateTTLSec       *int  `yaml:"stateTtlSec"`
	DrainLockTTLSec   *int  `yaml:"drainLockTtlSec"`
	EnableWriteBehind *bool `yaml:"enableWriteBehind"`
	EnableReadThrough *bool `yaml:"enableReadThrough"`
}

// Storage configures one storage-name's Core.
type Storage struct {
	Name                string      `yaml:"name"`
	UseTenantPerStorage bool        `yaml:"useTenantPerStorage"`
	CheckConcurrency    *bool       `yaml:"checkConcurrency"`
	WriteBehind         WriteBehind `yaml:"writeBehind"`
}

// Redis configures the Cache Adapter's connection.
type Redis struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password,omitempty"`
	DB       int      `yaml:"db"`
}

// Mongo configures the Durable Store Adapter's connection when durable
// store kind is "mongo".
type Mongo struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// Bolt configures the embedded fallback durable store.
type Bolt struct {
	DataDir string `yaml:"dataDir"`
}

// DurableStore selects and configures the Durable Store Adapter. Kind is
// "mongo" or "bolt"; exactly one of the matching sections is read.
type DurableStore struct {
	Kind  string `yaml:"kind"`
	Mongo Mongo  `yaml:"mongo"`
	Bolt  Bolt   `yaml:"bolt"`
}

// Config is the complete mgs.yaml document.
type Config struct {
	ClusterID    string       `yaml:"clusterId"`
	GRPCAddr     string       `yaml:"grpcAddr"`
	HTTPAddr     string       `yaml:"httpAddr"`
	Redis        Redis        `yaml:"redis"`
	DurableStore DurableStore `yaml:"durableStore"`
	Storages     []Storage    `yaml:"storages"`
}

// Default returns the documented defaults: a single "default" storage with
// grainstore.DefaultOptions, an embedded Bolt store under ./data, and no
// cache tier configured (callers wanting write-behind must add a redis
// section).
func Default() Config {
	return Config{
		ClusterID: "mgs-dev",
		GRPCAddr:  ":7070",
		HTTPAddr:  ":8080",
		DurableStore: DurableStore{
			Kind: "bolt",
			Bolt: Bolt{DataDir: "./data"},
		},
		Storages: []Storage{
			{Name: "default"},
		},
	}
}

// Load reads and validates the YAML document at path. Unset per-storage
// options are left nil; Storage.GrainstoreOptions fills them from
// grainstore.DefaultWriteBehindOptions.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}

	// Required fields (clusterId, storages) carry no default so their
	// absence is caught below; everything else starts from Default.
	cfg := Default()
	cfg.ClusterID = ""
	cfg.Storages = nil
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}

	if cfg.ClusterID == "" {
		return Config{}, fmt.Errorf("config: clusterId is required")
	}
	if len(cfg.Storages) == 0 {
		return Config{}, fmt.Errorf("config: at least one storage must be configured")
	}
	switch cfg.DurableStore.Kind {
	case "mongo":
		if cfg.DurableStore.Mongo.URI == "" {
			return Config{}, fmt.Errorf("config: durableStore.mongo.uri is required for kind=mongo")
		}
	case "bolt", "":
		if cfg.DurableStore.Bolt.DataDir == "" {
			cfg.DurableStore.Bolt.DataDir = "./data"
		}
	default:
		return Config{}, fmt.Errorf("config: unknown durableStore.kind %q", cfg.DurableStore.Kind)
	}

	return cfg, nil
}

// GrainstoreOptions translates a Storage section into grainstore.Options,
// applying grainstore.DefaultWriteBehindOptions for any unset field.
func (s Storage) GrainstoreOptions() grainstore.Options {
	defaults := grainstore.DefaultWriteBehindOptions()
	wb := grainstore.WriteBehindOptions{
		Threshold:         orInt(s.WriteBehind.Threshold, defaults.Threshold),
		BatchSize:         orInt(s.WriteBehind.BatchSize, defaults.BatchSize),
		DrainIntervalSec:  orInt(s.WriteBehind.DrainIntervalSec, defaults.DrainIntervalSec),
		StateTTLSec:       orInt(s.WriteBehind.StateTTLSec, defaults.StateTTLSec),
		DrainLockTTLSec:   orInt(s.WriteBehind.DrainLockTTLSec, defaults.DrainLockTTLSec),
		EnableWriteBehind: orBool(s.WriteBehind.EnableWriteBehind, defaults.EnableWriteBehind),
		EnableReadThrough: orBool(s.WriteBehind.EnableReadThrough, defaults.EnableReadThrough),
	}

	checkConcurrency := true
	if s.CheckConcurrency != nil {
		checkConcurrency = *s.CheckConcurrency
	}

	return grainstore.Options{
		UseTenantPerStorage: s.UseTenantPerStorage,
		CheckConcurrency:    checkConcurrency,
		WriteBehind:         wb,
	}
}

func orInt(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func orBool(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
