package resources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/dmitrijs2005/resourcehub/internal/dbx"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/lib/pq"
)

const (
	insertQuery = `INSERT INTO resources (title, description, file_url, link, tags, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, downloads, logs, created_at, updated_at`

	selectQuery = `SELECT r.id, r.title, r.description, r.file_url, r.link, r.tags, r.created_by,
		r.downloads, r.logs, r.created_at, r.updated_at, u.name, u.email
		FROM resources r JOIN users u ON u.id = r.created_by`

	getByIDQuery = selectQuery + ` WHERE r.id = $1`

	countQuery = `SELECT COUNT(*) FROM resources r`

	// created_by and downloads are never written here.
	updateQuery = `UPDATE resources
		SET title = $2, description = $3, tags = $4, logs = array_append(logs, $5), updated_at = now()
		WHERE id = $1
		RETURNING logs, updated_at`

	downloadQuery = `UPDATE resources
		SET downloads = downloads + 1, logs = array_append(logs, $2)
		WHERE id = $1
		RETURNING downloads`

	deleteQuery = `DELETE FROM resources WHERE id = $1`

	statsQuery = `SELECT COUNT(*), COALESCE(SUM(downloads), 0) FROM resources`

	topQuery = `SELECT id, title, downloads FROM resources ORDER BY downloads DESC, created_at DESC LIMIT $1`
)

var sortColumns = map[string]string{
	models.SortCreatedAt: "r.created_at",
	models.SortUpdatedAt: "r.updated_at",
	models.SortTitle:     "r.title",
	models.SortDownloads: "r.downloads",
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, res *models.Resource) (*models.Resource, error) {
	if res.Tags == nil {
		res.Tags = []string{}
	}

	err := r.db.QueryRowContext(ctx, insertQuery,
		res.Title, res.Description, res.FileURL, res.Link, pq.Array(res.Tags), res.CreatedByID).
		Scan(&res.ID, &res.Downloads, pq.Array(&res.Logs), &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return res, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(s scanner) (*models.Resource, error) {
	res := &models.Resource{CreatedBy: &models.UserSummary{}}
	err := s.Scan(&res.ID, &res.Title, &res.Description, &res.FileURL, &res.Link, pq.Array(&res.Tags),
		&res.CreatedByID, &res.Downloads, pq.Array(&res.Logs), &res.CreatedAt, &res.UpdatedAt,
		&res.CreatedBy.Name, &res.CreatedBy.Email)
	if err != nil {
		return nil, err
	}
	res.CreatedBy.ID = res.CreatedByID
	if res.Tags == nil {
		res.Tags = []string{}
	}
	if res.Logs == nil {
		res.Logs = []string{}
	}
	return res, nil
}

// GetByID returns the resource with its owner summary resolved.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx, getByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

// List returns one page of resources matching filter together with the
// total number of matches. Page and Limit must already be normalised.
func (r *PostgresRepository) List(ctx context.Context, filter models.ListFilter) ([]*models.Resource, int64, error) {
	where, args := buildWhere(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	column, ok := sortColumns[filter.Sort]
	if !ok {
		column = sortColumns[models.SortCreatedAt]
	}
	dir := "DESC"
	if filter.Asc {
		dir = "ASC"
	}

	n := len(args)
	query := fmt.Sprintf("%s%s ORDER BY %s %s, r.id %s LIMIT $%d OFFSET $%d",
		selectQuery, where, column, dir, dir, n+1, n+2)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Resource, 0, filter.Limit)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		items = append(items, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return items, total, nil
}

func buildWhere(filter models.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if filter.Search != "" {
		args = append(args, dbx.ContainsPattern(filter.Search))
		n := len(args)
		conds = append(conds, fmt.Sprintf("(r.title ILIKE $%d OR r.description ILIKE $%d OR r.link ILIKE $%d)", n, n, n))
	}
	if len(filter.Tags) > 0 {
		args = append(args, pq.Array(filter.Tags))
		conds = append(conds, fmt.Sprintf("r.tags @> $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Update stores title, description and tags and appends logLine to the
// embedded log.
func (r *PostgresRepository) Update(ctx context.Context, res *models.Resource, logLine string) (*models.Resource, error) {
	err := r.db.QueryRowContext(ctx, updateQuery, res.ID, res.Title, res.Description, pq.Array(res.Tags), logLine).
		Scan(pq.Array(&res.Logs), &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

// RecordDownload increments the download counter, appends logLine and
// returns the new counter value.
func (r *PostgresRepository) RecordDownload(ctx context.Context, id string, logLine string) (int64, error) {
	var downloads int64
	if err := r.db.QueryRowContext(ctx, downloadQuery, id, logLine).Scan(&downloads); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return downloads, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Stats counts resources and sums their downloads, optionally restricted to
// one owner.
func (r *PostgresRepository) Stats(ctx context.Context, ownerID *string) (Stats, error) {
	query := statsQuery
	var args []any
	if ownerID != nil {
		query += ` WHERE created_by = $1`
		args = append(args, *ownerID)
	}

	var s Stats
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.Count, &s.Downloads); err != nil {
		return Stats{}, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// Top returns the n most downloaded resources.
func (r *PostgresRepository) Top(ctx context.Context, n int) ([]*models.TopResource, error) {
	rows, err := r.db.QueryContext(ctx, topQuery, n)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items := make([]*models.TopResource, 0, n)
	for rows.Next() {
		t := &models.TopResource{}
		if err := rows.Scan(&t.ID, &t.Title, &t.Downloads); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}
