package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/dmitrijs2005/resourcehub/internal/dbx"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/activitylogs"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/resources"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/users"
	"github.com/dmitrijs2005/resourcehub/internal/server/storage"
	"github.com/google/uuid"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	mu       sync.Mutex
	byID     map[string]*models.User
	getErr   error
	countErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) add(name, email string, role models.Role) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: uuid.NewString(), Name: name, Email: email, Role: role}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if strings.EqualFold(o.Email, u.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	f.byID[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) Update(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	f.byID[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return int64(len(f.byID)), nil
}

// --- resources ---

type fakeResourcesRepo struct {
	mu        sync.Mutex
	rows      []*models.Resource
	users     *fakeUsersRepo
	createErr error
	updateErr error
	deleteErr error
	dlErr     error
	updates   int
}

func (f *fakeResourcesRepo) find(id string) (int, *models.Resource) {
	for i, r := range f.rows {
		if r.ID == id {
			return i, r
		}
	}
	return -1, nil
}

func clone(r *models.Resource) *models.Resource {
	cp := *r
	cp.Tags = slices.Clone(r.Tags)
	cp.Logs = slices.Clone(r.Logs)
	return &cp
}

func (f *fakeResourcesRepo) Create(ctx context.Context, r *models.Resource) (*models.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().Add(time.Duration(len(f.rows)) * time.Millisecond)
	r.UpdatedAt = r.CreatedAt
	r.Logs = []string{}
	f.rows = append(f.rows, clone(r))
	return r, nil
}

func (f *fakeResourcesRepo) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, r := f.find(id)
	if r == nil {
		return nil, common.ErrorNotFound
	}
	out := clone(r)
	if f.users != nil {
		if u, err := f.users.GetByID(ctx, r.CreatedByID); err == nil {
			out.CreatedBy = &models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
	return out, nil
}

func (f *fakeResourcesRepo) List(ctx context.Context, filter models.ListFilter) ([]*models.Resource, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*models.Resource
	for _, r := range f.rows {
		if filter.Search != "" && !strings.Contains(strings.ToLower(r.Title), strings.ToLower(filter.Search)) {
			continue
		}
		ok := true
		for _, t := range filter.Tags {
			if !slices.Contains(r.Tags, t) {
				ok = false
			}
		}
		if ok {
			matched = append(matched, clone(r))
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if filter.Asc {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], total, nil
}

func (f *fakeResourcesRepo) Update(ctx context.Context, r *models.Resource, line string) (*models.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	_, cur := f.find(r.ID)
	if cur == nil {
		return nil, common.ErrorNotFound
	}
	f.updates++
	cur.Title, cur.Description, cur.Tags = r.Title, r.Description, slices.Clone(r.Tags)
	cur.Logs = append(cur.Logs, line)
	r.Logs = slices.Clone(cur.Logs)
	return r, nil
}

func (f *fakeResourcesRepo) RecordDownload(ctx context.Context, id, line string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dlErr != nil {
		return 0, f.dlErr
	}
	_, cur := f.find(id)
	if cur == nil {
		return 0, common.ErrorNotFound
	}
	cur.Downloads++
	cur.Logs = append(cur.Logs, line)
	return cur.Downloads, nil
}

func (f *fakeResourcesRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	i, _ := f.find(id)
	if i < 0 {
		return common.ErrorNotFound
	}
	f.rows = append(f.rows[:i], f.rows[i+1:]...)
	return nil
}

func (f *fakeResourcesRepo) Stats(ctx context.Context, ownerID *string) (resources.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s resources.Stats
	for _, r := range f.rows {
		if ownerID != nil && r.CreatedByID != *ownerID {
			continue
		}
		s.Count++
		s.Downloads += r.Downloads
	}
	return s, nil
}

func (f *fakeResourcesRepo) Top(ctx context.Context, n int) ([]*models.TopResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := slices.Clone(f.rows)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Downloads > rows[j].Downloads })
	var out []*models.TopResource
	for i := 0; i < len(rows) && i < n; i++ {
		out = append(out, &models.TopResource{ID: rows[i].ID, Title: rows[i].Title, Downloads: rows[i].Downloads})
	}
	return out, nil
}

func (f *fakeResourcesRepo) get(id string) *models.Resource {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, r := f.find(id)
	if r == nil {
		return nil
	}
	return clone(r)
}

// --- activity logs ---

type fakeActivityRepo struct {
	mu        sync.Mutex
	entries   []*models.ActivityLog
	createErr error
	lastLimit int
	lastUser  *string
}

func (f *fakeActivityRepo) Create(ctx context.Context, e *models.ActivityLog) (*models.ActivityLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	e.ID = uuid.NewString()
	e.Timestamp = time.Now()
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeActivityRepo) List(ctx context.Context, userID *string, limit int) ([]*models.ActivityLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit, f.lastUser = limit, userID
	out := []*models.ActivityLog{}
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if userID != nil && e.UserID != *userID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeResourcesRepo
	a *fakeActivityRepo
}

func newFakeRepoManager() *fakeRepoManager {
	u := newFakeUsersRepo()
	return &fakeRepoManager{u: u, r: &fakeResourcesRepo{users: u}, a: &fakeActivityRepo{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error     { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository               { return m.u }
func (m *fakeRepoManager) Resources(db dbx.DBTX) resources.Repository       { return m.r }
func (m *fakeRepoManager) ActivityLogs(db dbx.DBTX) activitylogs.Repository { return m.a }

// --- file store ---

type fakeFileStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	saveErr   error
	openErr   error
	removed   []string
	openCount int
	closed    int
}

func newFakeFileStore() *fakeFileStore { return &fakeFileStore{files: map[string][]byte{}} }

func (f *fakeFileStore) Save(ctx context.Context, name string, r io.Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.files[name]; ok {
		return common.ErrorAlreadyExists
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.files[name] = b
	return nil
}

type trackedBody struct {
	io.Reader
	store *fakeFileStore
}

func (b *trackedBody) Close() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.store.closed++
	return nil
}

func (f *fakeFileStore) Open(ctx context.Context, name string) (io.ReadCloser, storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, storage.Object{}, f.openErr
	}
	b, ok := f.files[name]
	if !ok {
		return nil, storage.Object{}, common.Errorf(common.ErrorNotFound, "File not found")
	}
	f.openCount++
	return &trackedBody{Reader: bytes.NewReader(b), store: f}, storage.Object{Name: name, Size: int64(len(b))}, nil
}

func (f *fakeFileStore) Remove(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, name)
	delete(f.files, name)
	return nil
}

func (f *fakeFileStore) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[name]
	return ok
}
