// Package activitylogs persists the append-only audit trail.
package activitylogs

import (
	"context"

	"github.com/dmitrijs2005/resourcehub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.ActivityLog) (*models.ActivityLog, error)
	// List returns entries newest first. A nil userID lists every actor;
	// limit <= 0 means no limit.
	List(ctx context.Context, userID *string, limit int) ([]*models.ActivityLog, error)
}
