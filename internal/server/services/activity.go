package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/resourcehub/internal/dbx"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/repomanager"
)

// RecentLogsLimit is the number of entries shown on dashboards.
const RecentLogsLimit = 10

// ActivityService appends to and reads the audit trail.
type ActivityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewActivityService(db *sql.DB, m repomanager.RepositoryManager) *ActivityService {
	return &ActivityService{db: db, repomanager: m}
}

// Record appends one entry for actorID. resourceID may be nil.
func (s *ActivityService) Record(ctx context.Context, actorID, action string, resourceID *string) error {
	return s.record(ctx, s.db, actorID, action, resourceID)
}

// record appends through db, which may be a transaction owned by the caller.
func (s *ActivityService) record(ctx context.Context, db dbx.DBTX, actorID, action string, resourceID *string) error {
	_, err := s.repomanager.ActivityLogs(db).Create(ctx, &models.ActivityLog{
		UserID:     actorID,
		Action:     action,
		ResourceID: resourceID,
	})
	if err != nil {
		return fmt.Errorf("error recording %s activity: %w", action, err)
	}
	return nil
}

// Query returns the entries visible to identity, newest first: everything
// for admins, only their own entries for everyone else.
func (s *ActivityService) Query(ctx context.Context, identity models.Identity) ([]*models.ActivityLog, error) {
	var scope *string
	if !identity.IsAdmin() {
		scope = &identity.UserID
	}
	return s.list(ctx, scope, 0)
}

// Recent returns the n newest entries, optionally for one actor.
func (s *ActivityService) Recent(ctx context.Context, userID *string, n int) ([]*models.ActivityLog, error) {
	return s.list(ctx, userID, n)
}

func (s *ActivityService) list(ctx context.Context, userID *string, n int) ([]*models.ActivityLog, error) {
	logs, err := s.repomanager.ActivityLogs(s.db).List(ctx, userID, n)
	if err != nil {
		return nil, fmt.Errorf("error listing activity: %w", err)
	}
	return logs, nil
}
