package durablestore

import (
	"context"

	"github.com/cuemby/mgs/pkg/types"
)

// Store is the durable document database contract the Grain Storage Core
// depends on. Implementations must give load a consistent, isolated read
// and upsert/delete must not return until the write is durable.
//
// tenant selects a database-tenant when the core is configured with
// useTenantPerStorage; it is empty for the default tenant. This is
// orthogonal to the request-scoped cache tenant in pkg/identity.
type Store interface {
	// Load returns the current document for id, or (nil, nil) if no such
	// document exists. Errors from the underlying database surface
	// unchanged.
	Load(ctx context.Context, id string, tenant string) (*types.StateDocument, error)

	// Upsert atomically replaces (or creates) the document. It returns only
	// after the write is durable.
	Upsert(ctx context.Context, doc *types.StateDocument, tenant string) error

	// Delete removes the document by id. It is idempotent: deleting an id
	// that does not exist is not an error.
	Delete(ctx context.Context, id string, tenant string) error

	// Close releases any resources (connections, file handles) held by the
	// adapter.
	Close() error
}
