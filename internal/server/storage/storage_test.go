package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/resourcehub/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsBackend(t *testing.T) {
	cfg := &config.Config{StorageBackend: config.StorageLocal, UploadDir: filepath.Join(t.TempDir(), "u")}

	fs, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, fs)

	cfg.StorageBackend = "ftp"
	_, err = New(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("x.PNG"))
	assert.Equal(t, "application/octet-stream", contentType("noext"))
}
