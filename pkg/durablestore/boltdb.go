package durablestore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cuemby/mgs/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// BoltStore is an embedded, single-process durable store backed by BoltDB.
// It exists for local development and tests where running a document
// database is impractical; it speaks the same Store contract as
// MongoStore, so the Grain Storage Core cannot tell the difference.
//
// Database-tenants are modeled as separate top-level buckets, created
// lazily on first use of a tenant, since BoltDB has no native multi-tenant
// concept.
type BoltStore struct {
	db *bolt.DB
}

var defaultTenantBucket = []byte("_default")

// NewBoltStore opens (creating if absent) a BoltDB file at
// <dataDir>/mgs.db.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "mgs.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("durablestore: open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(defaultTenantBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("durablestore: create default bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func tenantBucketName(tenant string) []byte {
	if tenant == "" {
		return defaultTenantBucket
	}
	return []byte("tenant_" + tenant)
}

func (s *BoltStore) bucket(tx *bolt.Tx, tenant string, create bool) (*bolt.Bucket, error) {
	name := tenantBucketName(tenant)
	if create {
		return tx.CreateBucketIfNotExists(name)
	}
	return tx.Bucket(name), nil
}

// Load implements Store.
func (s *BoltStore) Load(_ context.Context, id string, tenant string) (*types.StateDocument, error) {
	var doc *types.StateDocument
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := s.bucket(tx, tenant, false)
		if err != nil {
			return err
		}
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(id))
		if raw == nil {
			return nil
		}
		var d types.StateDocument
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("durablestore: decode document %q: %w", id, err)
		}
		doc = &d
		return nil
	})
	return doc, err
}

// Upsert implements Store.
func (s *BoltStore) Upsert(_ context.Context, doc *types.StateDocument, tenant string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := s.bucket(tx, tenant, true)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("durablestore: encode document %q: %w", doc.ID, err)
		}
		return b.Put([]byte(doc.ID), raw)
	})
}

// Delete implements Store.
func (s *BoltStore) Delete(_ context.Context, id string, tenant string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := s.bucket(tx, tenant, false)
		if err != nil {
			return err
		}
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
