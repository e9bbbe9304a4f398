package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/resourcehub/internal/dbx"
	"github.com/dmitrijs2005/resourcehub/internal/logging"
	"github.com/dmitrijs2005/resourcehub/internal/server/config"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/activitylogs"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/resources"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubManager struct {
	migrateErr error
	migrated   bool
}

func (m *stubManager) RunMigrations(context.Context, *sql.DB) error {
	m.migrated = true
	return m.migrateErr
}
func (m *stubManager) Users(dbx.DBTX) users.Repository               { return nil }
func (m *stubManager) Resources(dbx.DBTX) resources.Repository       { return nil }
func (m *stubManager) ActivityLogs(dbx.DBTX) activitylogs.Repository { return nil }

func testConfig(t *testing.T) *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.UploadDir = t.TempDir()
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.ShutdownTimeout = time.Second
	return c
}

func TestNewApp_MigrationError(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rm := &stubManager{migrateErr: errors.New("no db")}
	_, err = newApp(context.Background(), testConfig(t), logging.NewNopLogger(), db, rm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration error")
}

func TestNewApp_UnknownStorage(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := testConfig(t)
	c.StorageBackend = "ftp"
	_, err = newApp(context.Background(), c, logging.NewNopLogger(), db, &stubManager{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage init error")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	rm := &stubManager{}
	app, err := newApp(context.Background(), testConfig(t), logging.NewNopLogger(), db, rm)
	require.NoError(t, err)
	assert.True(t, rm.migrated)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}
