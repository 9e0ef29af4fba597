/*
Package grainstore is the Grain Storage Core: the component a host
runtime's actor activations call into for READ, WRITE, and CLEAR against a
single storage-name.

	   read-through cache ──miss──▶ durable store (canonical id)
	         │ hit                        │ miss
	         ▼                            ▼
	     return slot              durable store (legacy id)
	                                      │ hit
	                                      ▼
	                            migrate + return slot

	   write ──counter > threshold──▶ cache write-behind + mark dirty
	     │ else
	     ▼
	   concurrency check (slot etag vs current durable etag)
	     │ ok
	     ▼
	   durable upsert, refresh cache, clear dirty

One Core is constructed per (cluster, storage-name) and is safe for
concurrent use across entities. It never serializes two WRITEs for the
same entity itself; that guarantee comes from the host runtime's
single-activation-at-a-time model.
*/
package grainstore
