/*
Package types defines the data structures shared across mgs: the durable
state document, the cache envelope it is mirrored into, and the mutable
slot that READ/WRITE/CLEAR operations exchange with callers.

These types intentionally carry no behavior beyond small derived accessors
(LastModifiedMs, Reset); the ETag computation, key derivation, and
persistence logic live in pkg/etag, pkg/identity, pkg/durablestore, and
pkg/cache respectively, each operating on these shared shapes.
*/
package types
