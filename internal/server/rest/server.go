// Package rest exposes the services over HTTP/JSON.
package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/dmitrijs2005/resourcehub/internal/logging"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/dmitrijs2005/resourcehub/internal/server/services"
	"github.com/dmitrijs2005/resourcehub/internal/server/storage"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UserService is the account surface used by the auth routes.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Profile(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, name, email string) (*models.User, error)
	ChangePassword(ctx context.Context, id, current, next string) error
}

// ResourceService is the resource surface used by the resource routes.
type ResourceService interface {
	Upload(ctx context.Context, actor models.Identity, in services.UploadInput) (*models.Resource, error)
	Create(ctx context.Context, actor models.Identity, in services.CreateInput) (*models.Resource, error)
	Get(ctx context.Context, id string) (*models.Resource, error)
	List(ctx context.Context, filter models.ListFilter) (*models.ListResult, error)
	Update(ctx context.Context, actor models.Identity, id string, in services.UpdateInput) (*models.Resource, error)
	Delete(ctx context.Context, actor models.Identity, id string) error
	Download(ctx context.Context, actor models.Identity, id string) (*services.Download, error)
	OpenFile(ctx context.Context, name string) (io.ReadCloser, storage.Object, error)
}

type ActivityService interface {
	Query(ctx context.Context, identity models.Identity) ([]*models.ActivityLog, error)
}

type DashboardService interface {
	User(ctx context.Context, userID string) (*models.UserDashboard, error)
	Admin(ctx context.Context) (*models.AdminDashboard, error)
}

// Options carries the settings the HTTP layer needs from the config.
type Options struct {
	Address         string
	SecretKey       string
	MaxUploadSize   int64
	ShutdownTimeout time.Duration
}

type HTTPServer struct {
	opts      Options
	users     UserService
	resources ResourceService
	activity  ActivityService
	dashboard DashboardService
	logger    logging.Logger
	jwtSecret []byte
	validate  *validator.Validate
	metrics   *metrics
}

func NewHTTPServer(opts Options, l logging.Logger, us UserService, rs ResourceService,
	as ActivityService, ds DashboardService) *HTTPServer {
	return &HTTPServer{
		opts:      opts,
		users:     us,
		resources: rs,
		activity:  as,
		dashboard: ds,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(opts.SecretKey),
		validate:  newValidator(),
		metrics:   newMetrics(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Router builds the route tree. Static segments under /api/resources are
// registered before the {id} routes.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.metrics.instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Get("/uploads/*", s.serveUpload)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.Authenticate)
			r.Get("/profile", s.profile)
			r.Put("/profile", s.updateProfile)
			r.Put("/change-password", s.changePassword)
		})
	})

	r.Route("/api/resources", func(r chi.Router) {
		r.Use(s.Authenticate)
		r.Post("/upload", s.uploadResource)
		r.Post("/", s.createResource)
		r.Get("/", s.listResources)
		r.Get("/activity-logs", s.activityLogs)
		r.Get("/download/{id}", s.downloadResource)
		r.Get("/{id}", s.getResource)
		r.Put("/{id}", s.updateResource)
		r.Delete("/{id}", s.deleteResource)
	})

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Use(s.Authenticate)
		r.Get("/user", s.userDashboard)
		r.With(RequireRoles(models.RoleAdmin)).Get("/admin", s.adminDashboard)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown error: %w", err)
	}
	return nil
}
