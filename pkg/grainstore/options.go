package grainstore

import "time"

// WriteBehindOptions configures the coalescing write-behind cache path.
type WriteBehindOptions struct {
	// Threshold is the cluster-wide writes/sec at which overflow engages.
	// Comparison is strictly greater-than: count > Threshold triggers the
	// write-behind path. Default 100.
	Threshold int

	// BatchSize is the maximum number of dirty entries the Drainer pops per
	// cycle per storage. Default 50.
	BatchSize int

	// DrainIntervalSec is the interval between Drainer cycles. Default 5.
	DrainIntervalSec int

	// StateTTLSec is the TTL (re)applied to the cache's state hash on every
	// write. 0 disables expiration. Default 300.
	StateTTLSec int

	// DrainLockTTLSec is the drain lease lifetime. Default 30.
	DrainLockTTLSec int

	// EnableWriteBehind gates the overflow path. When false, every write
	// goes through to the durable store regardless of write rate.
	// Default true.
	EnableWriteBehind bool

	// EnableReadThrough gates the cache-first read. Default true.
	EnableReadThrough bool
}

// DefaultWriteBehindOptions returns the options documented as defaults.
func DefaultWriteBehindOptions() WriteBehindOptions {
	return WriteBehindOptions{
		Threshold:         100,
		BatchSize:         50,
		DrainIntervalSec:  5,
		StateTTLSec:       300,
		DrainLockTTLSec:   30,
		EnableWriteBehind: true,
		EnableReadThrough: true,
	}
}

// StateTTL returns StateTTLSec as a time.Duration (0 if disabled).
func (o WriteBehindOptions) StateTTL() time.Duration {
	return time.Duration(o.StateTTLSec) * time.Second
}

// DrainLockTTL returns DrainLockTTLSec as a time.Duration.
func (o WriteBehindOptions) DrainLockTTL() time.Duration {
	return time.Duration(o.DrainLockTTLSec) * time.Second
}

// DrainInterval returns DrainIntervalSec as a time.Duration.
func (o WriteBehindOptions) DrainInterval() time.Duration {
	return time.Duration(o.DrainIntervalSec) * time.Second
}

// Options configures a single Core instance for one storage-name.
type Options struct {
	// UseTenantPerStorage, when true, opens every durable-store session
	// with tenant = storage-name instead of the default tenant.
	UseTenantPerStorage bool

	// CheckConcurrency enforces ETag matching on write-through updates.
	// Default true.
	CheckConcurrency bool

	WriteBehind WriteBehindOptions
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		UseTenantPerStorage: false,
		CheckConcurrency:    true,
		WriteBehind:         DefaultWriteBehindOptions(),
	}
}
