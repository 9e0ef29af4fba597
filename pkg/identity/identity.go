/*
Package identity implements the deterministic mapping from
(cluster-id, storage-name, tenant, entity-id) to the cache keys and durable
document ids mgs uses. Every function here is pure: same inputs, same
string, every time, on every process in the cluster.
*/
package identity

import "strings"

// CacheGrainKey returns the entity identifier with its "/" type separator
// replaced by "_", the form used as a field name within the cache's state
// hash and as a member of its dirty set.
func CacheGrainKey(entityID string) string {
	return strings.ReplaceAll(entityID, "/", "_")
}

// EntityIDFromGrainKey reverses CacheGrainKey by turning the first "_"
// back into "/". It round-trips only for two-part "{type-prefix}/{key}" ids
// whose type prefix contains no "_" and whose key contains no "/"; the
// key itself may contain "_".
func EntityIDFromGrainKey(grainKey string) string {
	return strings.Replace(grainKey, "_", "/", 1)
}

// DocumentID returns the canonical durable-store document id for an entity
// within a cluster: "{cluster}_{entity-with-underscores}".
func DocumentID(clusterID, entityID string) string {
	return clusterID + "_" + CacheGrainKey(entityID)
}

// LegacyDocumentID returns the pre-migration document id: the raw entity
// identifier, unmodified. READ recognizes documents stored under this id
// and migrates them to the canonical form on first successful read.
func LegacyDocumentID(entityID string) string {
	return entityID
}

// StateMapKey returns the cache hash key holding every cached entry for a
// (cluster, storage, tenant) triple. tenant may be empty, meaning no
// request-scoped tenant is in effect.
func StateMapKey(clusterID, storage, tenant string) string {
	return scopedKey(clusterID, storage, tenant, "state")
}

// DirtySetKey returns the cache set key holding the canonical grain keys
// whose latest value has not yet been drained to the durable store.
func DirtySetKey(clusterID, storage, tenant string) string {
	return scopedKey(clusterID, storage, tenant, "dirty")
}

// WriteCounterKey returns the cache key backing the cluster-wide,
// per-storage write-rate counter. It carries no tenant component: surge
// detection is cluster-global per storage-name.
func WriteCounterKey(clusterID, storage string) string {
	return "mgs:" + clusterID + ":" + storage + ":wcount"
}

// DrainLeaseKey returns the cache key backing the per-storage drain lease.
// Like WriteCounterKey, it has no tenant component.
func DrainLeaseKey(clusterID, storage string) string {
	return "mgs:" + clusterID + ":" + storage + ":drain-lock"
}

func scopedKey(clusterID, storage, tenant, suffix string) string {
	key := "mgs:" + clusterID + ":" + storage
	if tenant != "" {
		key += ":tenant:" + tenant
	}
	return key + ":" + suffix
}
