package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/dmitrijs2005/resourcehub/internal/dbx"
	"github.com/dmitrijs2005/resourcehub/internal/logging"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/resourcehub/internal/server/storage"
	"github.com/dmitrijs2005/resourcehub/internal/server/upload"
)

// Paging defaults for List.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// storeAttempts bounds retries when two uploads land on the same stored name.
const storeAttempts = 3

// UploadFile is a file part received with an upload.
type UploadFile struct {
	Name      string
	MediaType string
	Size      int64
	Body      io.Reader
}

// UploadInput describes a resource backed by an uploaded file and/or a link.
// Tags is a comma-separated list.
type UploadInput struct {
	Title       string
	Description string
	Tags        string
	Link        string
	File        *UploadFile
}

// CreateInput describes a resource created from metadata only. FileURL is
// stored as given.
type CreateInput struct {
	Title       string
	Description string
	Tags        []string
	FileURL     string
}

// UpdateInput holds optional edits. Nil and empty values leave the field
// unchanged. Tags is a comma-separated list.
type UpdateInput struct {
	Title       *string
	Description *string
	Tags        *string
}

// Download is an open file ready to be streamed. Body must be closed.
type Download struct {
	Body      io.ReadCloser
	Object    storage.Object
	Filename  string
	Downloads int64
}

// ResourceService implements the resource lifecycle: upload, create, read,
// search, edit, delete and download, with ownership checks and audit logs.
type ResourceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	files       storage.FileStore
	gate        *upload.Gate
	activity    *ActivityService
	log         logging.Logger
	now         func() time.Time
}

func NewResourceService(db *sql.DB, m repomanager.RepositoryManager, files storage.FileStore,
	gate *upload.Gate, activity *ActivityService, log logging.Logger) *ResourceService {
	return &ResourceService{
		db:          db,
		repomanager: m,
		files:       files,
		gate:        gate,
		activity:    activity,
		log:         log.With("module", "resources"),
		now:         time.Now,
	}
}

// Upload stores the optional file, creates the resource and records an
// upload entry. The stored file is removed again if the insert fails.
func (s *ResourceService) Upload(ctx context.Context, actor models.Identity, in UploadInput) (*models.Resource, error) {
	title := strings.TrimSpace(in.Title)
	link := strings.TrimSpace(in.Link)
	if title == "" || (in.File == nil && link == "") {
		return nil, common.Errorf(common.ErrorValidation, "Title and either a file or a link are required.")
	}

	res := &models.Resource{
		Title:       title,
		Description: in.Description,
		Tags:        SplitTags(in.Tags),
		CreatedByID: actor.UserID,
	}
	if link != "" {
		res.Link = &link
	}

	var stored string
	if in.File != nil {
		if err := s.gate.Check(in.File.Name, in.File.MediaType, in.File.Size); err != nil {
			return nil, err
		}

		name, err := s.store(ctx, in.File)
		if err != nil {
			return nil, err
		}
		stored = name
		fileURL := common.UploadsURLPrefix + stored
		res.FileURL = &fileURL
	}

	created, err := s.insert(ctx, actor, res, models.ActionUpload)
	if err != nil {
		if stored != "" {
			s.removeFile(ctx, stored)
		}
		return nil, err
	}

	return created, nil
}

// store saves f under a fresh timestamped name.
func (s *ResourceService) store(ctx context.Context, f *UploadFile) (string, error) {
	now := s.now()
	for i := 0; i < storeAttempts; i++ {
		name := upload.StoredName(now.Add(time.Duration(i)*time.Millisecond), f.Name)
		err := s.files.Save(ctx, name, f.Body)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, common.ErrorAlreadyExists) {
			return "", fmt.Errorf("error storing file: %w", err)
		}
	}
	return "", fmt.Errorf("error storing file: no free name for %q", f.Name)
}

// Create inserts a resource from metadata and records a create entry.
func (s *ResourceService) Create(ctx context.Context, actor models.Identity, in CreateInput) (*models.Resource, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, common.Errorf(common.ErrorValidation, "Title is required")
	}

	res := &models.Resource{
		Title:       title,
		Description: in.Description,
		Tags:        cleanTags(in.Tags),
		CreatedByID: actor.UserID,
	}
	if in.FileURL != "" {
		fileURL := in.FileURL
		res.FileURL = &fileURL
	}

	return s.insert(ctx, actor, res, models.ActionCreate)
}

func (s *ResourceService) insert(ctx context.Context, actor models.Identity, res *models.Resource, action string) (*models.Resource, error) {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Resources(tx).Create(ctx, res); err != nil {
			return fmt.Errorf("error creating resource: %w", err)
		}
		return s.activity.record(ctx, tx, actor.UserID, action, &res.ID)
	})
	if err != nil {
		return nil, err
	}

	res.CreatedBy = &models.UserSummary{ID: actor.UserID}
	if u, err := s.repomanager.Users(s.db).GetByID(ctx, actor.UserID); err == nil {
		res.CreatedBy.Name = u.Name
		res.CreatedBy.Email = u.Email
	} else {
		s.log.Warn(ctx, "failed to resolve resource owner", "user_id", actor.UserID, "error", err)
	}
	return res, nil
}

// Get returns a resource with its owner resolved.
func (s *ResourceService) Get(ctx context.Context, id string) (*models.Resource, error) {
	if !validID(id) {
		return nil, common.Errorf(common.ErrorNotFound, "Resource not found")
	}

	res, err := s.repomanager.Resources(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "Resource not found")
		}
		return nil, fmt.Errorf("error loading resource: %w", err)
	}
	return res, nil
}

// List returns one page of resources. Out-of-range paging values fall back
// to defaults and the limit is capped at MaxLimit.
func (s *ResourceService) List(ctx context.Context, filter models.ListFilter) (*models.ListResult, error) {
	if filter.Page < 1 {
		filter.Page = DefaultPage
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Sort == "" {
		filter.Sort = models.SortCreatedAt
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Tags = cleanTags(filter.Tags)

	items, total, err := s.repomanager.Resources(s.db).List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing resources: %w", err)
	}
	if items == nil {
		items = []*models.Resource{}
	}

	return &models.ListResult{
		Resources:  items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int64(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

// loadForChange loads id and checks that actor owns it or is an admin.
func (s *ResourceService) loadForChange(ctx context.Context, actor models.Identity, id string) (*models.Resource, error) {
	res, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(res.CreatedByID) {
		return nil, common.Errorf(common.ErrorForbidden, "Unauthorized")
	}
	return res, nil
}

// Update applies the fields of in that differ from the stored values. Each
// call with effective changes appends one log line and records an edit
// entry; a call without changes writes nothing.
func (s *ResourceService) Update(ctx context.Context, actor models.Identity, id string, in UpdateInput) (*models.Resource, error) {
	res, err := s.loadForChange(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var changes []string
	if in.Title != nil {
		if t := strings.TrimSpace(*in.Title); t != "" && t != res.Title {
			res.Title = t
			changes = append(changes, fmt.Sprintf("Title changed to '%s'", t))
		}
	}
	if in.Description != nil && *in.Description != "" && *in.Description != res.Description {
		res.Description = *in.Description
		changes = append(changes, "Description updated")
	}
	if in.Tags != nil && strings.TrimSpace(*in.Tags) != "" {
		if tags := SplitTags(*in.Tags); !slices.Equal(tags, res.Tags) {
			res.Tags = tags
			changes = append(changes, "Tags updated")
		}
	}

	if len(changes) == 0 {
		return res, nil
	}

	email, err := s.actorEmail(ctx, actor)
	if err != nil {
		return nil, err
	}
	line := fmt.Sprintf("Updated by %s at %s - Changes: %s", email, s.timestamp(), strings.Join(changes, ", "))

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Resources(tx).Update(ctx, res, line); err != nil {
			return fmt.Errorf("error updating resource: %w", err)
		}
		return s.activity.record(ctx, tx, actor.UserID, models.ActionEdit, &res.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "Resource not found")
		}
		return nil, err
	}

	return res, nil
}

// Delete removes the resource and records a delete entry in one
// transaction. The stored file is removed afterwards on a best-effort basis.
func (s *ResourceService) Delete(ctx context.Context, actor models.Identity, id string) error {
	res, err := s.loadForChange(ctx, actor, id)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Resources(tx).Delete(ctx, res.ID); err != nil {
			return fmt.Errorf("error deleting resource: %w", err)
		}
		return s.activity.record(ctx, tx, actor.UserID, models.ActionDelete, &res.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.Errorf(common.ErrorNotFound, "Resource not found")
		}
		return err
	}

	if name, ok := storedName(res); ok {
		s.removeFile(ctx, name)
	}
	return nil
}

// Download opens the backing file, then increments the download counter and
// appends a log line. No activity entry is recorded for downloads.
func (s *ResourceService) Download(ctx context.Context, actor models.Identity, id string) (*Download, error) {
	res, err := s.loadForChange(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	name, ok := storedName(res)
	if !ok {
		return nil, common.Errorf(common.ErrorNotFound, "File not found")
	}

	body, obj, err := s.files.Open(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "File not found")
		}
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	email, err := s.actorEmail(ctx, actor)
	if err != nil {
		_ = body.Close()
		return nil, err
	}

	line := fmt.Sprintf("Downloaded by %s at %s", email, s.timestamp())
	downloads, err := s.repomanager.Resources(s.db).RecordDownload(ctx, res.ID, line)
	if err != nil {
		_ = body.Close()
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "Resource not found")
		}
		return nil, fmt.Errorf("error recording download: %w", err)
	}

	return &Download{
		Body:      body,
		Object:    obj,
		Filename:  downloadName(res.Title, name),
		Downloads: downloads,
	}, nil
}

// OpenFile streams a stored upload by name for the public uploads route.
func (s *ResourceService) OpenFile(ctx context.Context, name string) (io.ReadCloser, storage.Object, error) {
	return s.files.Open(ctx, name)
}

func (s *ResourceService) actorEmail(ctx context.Context, actor models.Identity) (string, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.Errorf(common.ErrorUnauthorized, "User not found")
		}
		return "", fmt.Errorf("error loading actor: %w", err)
	}
	return u.Email, nil
}

func (s *ResourceService) removeFile(ctx context.Context, name string) {
	if err := s.files.Remove(ctx, name); err != nil {
		s.log.Warn(ctx, "failed to remove stored file", "file", name, "error", err)
	}
}

func (s *ResourceService) timestamp() string {
	return s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// storedName extracts the storage name from a resource's file URL. Only
// URLs under the uploads prefix refer to stored files.
func storedName(res *models.Resource) (string, bool) {
	if res.FileURL == nil || !strings.HasPrefix(*res.FileURL, common.UploadsURLPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(*res.FileURL, common.UploadsURLPrefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// downloadName is the attachment filename: the title plus the stored
// file's extension, or "download" when there is no title.
func downloadName(title, stored string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "download"
	}
	ext := filepath.Ext(stored)
	if ext != "" && !strings.EqualFold(filepath.Ext(title), ext) {
		title += ext
	}
	return title
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
