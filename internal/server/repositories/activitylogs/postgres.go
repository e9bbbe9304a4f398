package activitylogs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/resourcehub/internal/dbx"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
)

const (
	insertQuery = `INSERT INTO activity_logs (user_id, action, resource_id)
		VALUES ($1, $2, $3)
		RETURNING id, timestamp`

	selectQuery = `SELECT l.id, l.user_id, u.name, u.email, l.action, l.resource_id, r.title, l.timestamp
		FROM activity_logs l
		JOIN users u ON u.id = l.user_id
		LEFT JOIN resources r ON r.id = l.resource_id`
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, entry *models.ActivityLog) (*models.ActivityLog, error) {
	err := r.db.QueryRowContext(ctx, insertQuery, entry.UserID, entry.Action, entry.ResourceID).
		Scan(&entry.ID, &entry.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entry, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID *string, limit int) ([]*models.ActivityLog, error) {
	query := selectQuery
	var args []any

	if userID != nil {
		args = append(args, *userID)
		query += fmt.Sprintf(" WHERE l.user_id = $%d", len(args))
	}
	query += " ORDER BY l.timestamp DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	entries := []*models.ActivityLog{}
	for rows.Next() {
		var (
			e     = &models.ActivityLog{User: &models.UserSummary{}}
			title sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.User.Name, &e.User.Email, &e.Action, &e.ResourceID, &title, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.User.ID = e.UserID
		if e.ResourceID != nil && title.Valid {
			e.Resource = &models.ResourceSummary{ID: *e.ResourceID, Title: title.String}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}
