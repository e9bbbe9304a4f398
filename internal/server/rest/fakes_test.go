package rest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/dmitrijs2005/resourcehub/internal/logging"
	"github.com/dmitrijs2005/resourcehub/internal/server/auth"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/dmitrijs2005/resourcehub/internal/server/services"
	"github.com/dmitrijs2005/resourcehub/internal/server/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// ---- fakes ----

type fakeUsers struct {
	mu        sync.Mutex
	byEmail   map[string]*models.User
	passwords map[string]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*models.User{}, passwords: map[string]string{}}
}

func (f *fakeUsers) result(u *models.User) (*services.AuthResult, error) {
	token, err := auth.GenerateToken(u.Identity(), []byte(testSecret), time.Hour)
	if err != nil {
		return nil, err
	}
	return &services.AuthResult{Token: token, User: u}, nil
}

func (f *fakeUsers) Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	if _, ok := f.byEmail[in.Email]; ok {
		return nil, common.Errorf(common.ErrorAlreadyExists, "User already exists")
	}
	u := &models.User{ID: uuid.NewString(), Name: in.Name, Email: in.Email, PasswordHash: "hash:" + in.Password, Role: role}
	f.byEmail[in.Email] = u
	f.passwords[u.ID] = in.Password
	return f.result(u)
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.Errorf(common.ErrorValidation, "User not found")
	}
	if f.passwords[u.ID] != password {
		return nil, common.Errorf(common.ErrorValidation, "Invalid credentials")
	}
	return f.result(u)
}

func (f *fakeUsers) Profile(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.Errorf(common.ErrorNotFound, "User not found")
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, id, name, email string) (*models.User, error) {
	u, err := f.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		u.Name = name
	}
	return u, nil
}

func (f *fakeUsers) ChangePassword(ctx context.Context, id, current, next string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.passwords[id] != current {
		return common.Errorf(common.ErrorValidation, "Current password is incorrect")
	}
	f.passwords[id] = next
	return nil
}

type closeCounter struct {
	io.Reader
	closed *int
}

func (c closeCounter) Close() error {
	*c.closed++
	return nil
}

type fakeResources struct {
	lastUpload *services.UploadInput
	uploadBody []byte
	lastFilter models.ListFilter
	lastActor  models.Identity
	lastID     string
	err        error
	download   []byte
	closed     int
}

func (f *fakeResources) Upload(ctx context.Context, actor models.Identity, in services.UploadInput) (*models.Resource, error) {
	f.lastActor = actor
	f.lastUpload = &in
	if f.err != nil {
		return nil, f.err
	}
	res := &models.Resource{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Tags:      services.SplitTags(in.Tags),
		CreatedBy: &models.UserSummary{ID: actor.UserID},
		Logs:      []string{},
	}
	if in.File != nil {
		b, err := io.ReadAll(in.File.Body)
		if err != nil {
			return nil, err
		}
		f.uploadBody = b
		u := common.UploadsURLPrefix + "1-" + in.File.Name
		res.FileURL = &u
	}
	return res, nil
}

func (f *fakeResources) Create(ctx context.Context, actor models.Identity, in services.CreateInput) (*models.Resource, error) {
	f.lastActor = actor
	if f.err != nil {
		return nil, f.err
	}
	return &models.Resource{ID: uuid.NewString(), Title: in.Title, Tags: in.Tags, CreatedBy: &models.UserSummary{ID: actor.UserID}}, nil
}

func (f *fakeResources) Get(ctx context.Context, id string) (*models.Resource, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Resource{ID: id, Title: "t"}, nil
}

func (f *fakeResources) List(ctx context.Context, filter models.ListFilter) (*models.ListResult, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return &models.ListResult{Resources: []*models.Resource{}, Page: filter.Page, Limit: filter.Limit}, nil
}

func (f *fakeResources) Update(ctx context.Context, actor models.Identity, id string, in services.UpdateInput) (*models.Resource, error) {
	f.lastActor, f.lastID = actor, id
	if f.err != nil {
		return nil, f.err
	}
	res := &models.Resource{ID: id}
	if in.Title != nil {
		res.Title = *in.Title
	}
	return res, nil
}

func (f *fakeResources) Delete(ctx context.Context, actor models.Identity, id string) error {
	f.lastActor, f.lastID = actor, id
	return f.err
}

func (f *fakeResources) Download(ctx context.Context, actor models.Identity, id string) (*services.Download, error) {
	f.lastActor, f.lastID = actor, id
	if f.err != nil {
		return nil, f.err
	}
	return &services.Download{
		Body:      closeCounter{Reader: bytes.NewReader(f.download), closed: &f.closed},
		Object:    storage.Object{Name: "1-a.pdf", Size: int64(len(f.download)), ContentType: "application/pdf"},
		Filename:  "Report.pdf",
		Downloads: 1,
	}, nil
}

func (f *fakeResources) OpenFile(ctx context.Context, name string) (io.ReadCloser, storage.Object, error) {
	f.lastID = name
	if name != "1-a.png" {
		return nil, storage.Object{}, common.Errorf(common.ErrorNotFound, "File not found")
	}
	return closeCounter{Reader: strings.NewReader("png"), closed: &f.closed},
		storage.Object{Name: name, Size: 3, ContentType: "image/png"}, nil
}

type fakeActivity struct {
	lastIdentity models.Identity
}

func (f *fakeActivity) Query(ctx context.Context, identity models.Identity) ([]*models.ActivityLog, error) {
	f.lastIdentity = identity
	return []*models.ActivityLog{}, nil
}

type fakeDashboard struct{}

func (fakeDashboard) User(ctx context.Context, userID string) (*models.UserDashboard, error) {
	return &models.UserDashboard{TotalResources: 2, RecentLogs: []*models.ActivityLog{}}, nil
}

func (fakeDashboard) Admin(ctx context.Context) (*models.AdminDashboard, error) {
	return &models.AdminDashboard{TotalUsers: 7}, nil
}

// ---- helpers ----

type testEnv struct {
	srv       *HTTPServer
	handler   http.Handler
	users     *fakeUsers
	resources *fakeResources
	activity  *fakeActivity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{users: newFakeUsers(), resources: &fakeResources{}, activity: &fakeActivity{}}
	env.srv = NewHTTPServer(Options{SecretKey: testSecret, MaxUploadSize: 1024, ShutdownTimeout: time.Second},
		logging.NewNopLogger(), env.users, env.resources, env.activity, fakeDashboard{})
	env.handler = env.srv.Router()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func tokenFor(t *testing.T, id models.Identity) string {
	t.Helper()
	token, err := auth.GenerateToken(id, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return token
}
