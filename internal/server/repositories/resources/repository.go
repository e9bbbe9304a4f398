// Package resources persists shared resources (uploaded files and links).
package resources

import (
	"context"

	"github.com/dmitrijs2005/resourcehub/internal/server/models"
)

// Stats aggregates resource counters for one owner or for everyone.
type Stats struct {
	Count     int64
	Downloads int64
}

type Repository interface {
	Create(ctx context.Context, r *models.Resource) (*models.Resource, error)
	GetByID(ctx context.Context, id string) (*models.Resource, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Resource, int64, error)
	Update(ctx context.Context, r *models.Resource, logLine string) (*models.Resource, error)
	RecordDownload(ctx context.Context, id string, logLine string) (int64, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, ownerID *string) (Stats, error)
	Top(ctx context.Context, n int) ([]*models.TopResource, error)
}
