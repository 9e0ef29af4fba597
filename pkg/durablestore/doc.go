/*
Package durablestore implements the Durable Store Adapter: typed load,
upsert, and delete of a single state document, optionally scoped to a
database-tenant.

Three implementations share the Store interface:

  - MongoStore, the production adapter, backed by go.mongodb.org/mongo-driver.
    A database-tenant maps to a distinct Mongo database on the same client.
  - BoltStore, an embedded single-process adapter backed by go.etcd.io/bbolt.
    A database-tenant maps to a distinct top-level bucket.
  - Memory, an in-process fake used by grainstore and drainer tests.

All three are interchangeable from the Grain Storage Core's point of view:
Load returns (nil, nil) on a miss, Upsert is an atomic replace-or-create,
and Delete is idempotent.
*/
package durablestore
