// Package server wires configuration, storage, services and the HTTP
// transport together and runs them until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/resourcehub/internal/logging"
	"github.com/dmitrijs2005/resourcehub/internal/server/config"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/resourcehub/internal/server/rest"
	"github.com/dmitrijs2005/resourcehub/internal/server/services"
	"github.com/dmitrijs2005/resourcehub/internal/server/storage"
	"github.com/dmitrijs2005/resourcehub/internal/server/upload"
)

// openDB is a test seam for sql.Open.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *rest.HTTPServer
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, repomanager.NewPostgresRepositoryManager())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	files, err := storage.New(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	activity := services.NewActivityService(db, rm)
	us := services.NewUserService(db, rm, c)
	rs := services.NewResourceService(db, rm, files, upload.NewGate(c.MaxUploadSize), activity, logger)
	ds := services.NewDashboardService(db, rm, activity)

	hs := rest.NewHTTPServer(rest.Options{
		Address:         c.EndpointAddrHTTP,
		SecretKey:       c.SecretKey,
		MaxUploadSize:   c.MaxUploadSize,
		ShutdownTimeout: c.ShutdownTimeout,
	}, logger, us, rs, activity, ds)

	return &App{config: c, logger: logger, db: db, http: hs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until a termination signal arrives or ctx is cancelled.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	err := app.http.Run(ctx)

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Warn(ctx, "db close error", "error", cerr)
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
