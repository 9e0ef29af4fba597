package durablestore

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/mgs/pkg/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// mongoDocument is the BSON shape stored for each state document. Data is
// kept as raw bytes (not re-interpreted as a nested BSON document) so mgs
// never has to understand the caller's payload schema.
type mongoDocument struct {
	ID           string `bson:"_id"`
	Data         []byte `bson:"data"`
	LastModified int64  `bson:"lastModifiedMs"`
}

// MongoStore is the production Durable Store Adapter, backed by a MongoDB
// collection per storage-name. When the core is configured with
// useTenantPerStorage, each tenant maps to its own Mongo database on the
// same client, keeping tenants physically isolated without a shared
// collection relying on a tenant field for isolation.
type MongoStore struct {
	client         *mongo.Client
	defaultDB      string
	collectionName string
}

// NewMongoStore wraps an already-connected *mongo.Client. collectionName is
// typically the storage-name; defaultDB is used whenever tenant is empty.
func NewMongoStore(client *mongo.Client, defaultDB, collectionName string) *MongoStore {
	return &MongoStore{client: client, defaultDB: defaultDB, collectionName: collectionName}
}

func (s *MongoStore) collection(tenant string) *mongo.Collection {
	dbName := s.defaultDB
	if tenant != "" {
		dbName = tenant
	}
	return s.client.Database(dbName).Collection(s.collectionName)
}

// Load implements Store.
func (s *MongoStore) Load(ctx context.Context, id string, tenant string) (*types.StateDocument, error) {
	var md mongoDocument
	err := s.collection(tenant).FindOne(ctx, bson.M{"_id": id}).Decode(&md)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("durablestore: load %q: %w", id, err)
	}
	return &types.StateDocument{
		ID:           md.ID,
		Data:         md.Data,
		LastModified: msToTime(md.LastModified),
	}, nil
}

// Upsert implements Store.
func (s *MongoStore) Upsert(ctx context.Context, doc *types.StateDocument, tenant string) error {
	md := mongoDocument{ID: doc.ID, Data: doc.Data, LastModified: doc.LastModifiedMs()}
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection(tenant).ReplaceOne(ctx, bson.M{"_id": doc.ID}, md, opts)
	if err != nil {
		return fmt.Errorf("durablestore: upsert %q: %w", doc.ID, err)
	}
	return nil
}

// Delete implements Store.
func (s *MongoStore) Delete(ctx context.Context, id string, tenant string) error {
	_, err := s.collection(tenant).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("durablestore: delete %q: %w", id, err)
	}
	return nil
}

// Close implements Store.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
