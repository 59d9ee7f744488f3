package store

import (
	"context"

	"yellowpages-backend/models"
)

// Filter selects documents by exact field equality, keyed by column name.
type Filter map[string]any

// Collection is the document store the facade runs on. Implementations
// translate a missing document into ErrNoDocuments and a unique index
// violation into ErrDuplicateKey.
type Collection interface {
	InsertOne(ctx context.Context, vendor *models.Vendor) error
	InsertMany(ctx context.Context, vendors []models.Vendor) error
	FindOne(ctx context.Context, filter Filter) (*models.Vendor, error)
	// Find returns matches newest created_at first; limit <= 0 means no limit.
	Find(ctx context.Context, filter Filter, limit int) ([]models.Vendor, error)
	UpdateOne(ctx context.Context, filter Filter, set map[string]any) (int64, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Ping(ctx context.Context) error
}
