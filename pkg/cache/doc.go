/*
Package cache implements mgs's Cache Adapter over the key namespace the
write-behind tier shares across the cluster:

	mgs:{cluster}:{storage}[:tenant:{tenant}]:state   hash, grainKey -> envelope JSON
	mgs:{cluster}:{storage}[:tenant:{tenant}]:dirty   set of grainKey
	mgs:{cluster}:{storage}:wcount                    int, 1s TTL from first increment
	mgs:{cluster}:{storage}:drain-lock                string "locked", TTL = drainLockTtlSec

RedisAdapter is the production implementation, built on
github.com/redis/go-redis/v9. Memory is an in-process fake for grainstore
and drainer tests, including fault injection so the cache-failure fallback
paths can be exercised deterministically.
*/
package cache
