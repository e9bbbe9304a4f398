// Package storage keeps the binary payloads of uploaded resources, either on
// the local filesystem or in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/dmitrijs2005/resourcehub/internal/server/config"
)

// Object describes a stored file.
type Object struct {
	Name        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// FileStore saves, opens and removes files by flat name. Missing files are
// reported as common.ErrorNotFound.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, Object, error)
	Remove(ctx context.Context, name string) error
}

// New returns the FileStore selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config) (FileStore, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal, "":
		return NewLocalStore(cfg.UploadDir)
	case config.StorageS3:
		return NewS3Store(ctx, S3Options{
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// validName rejects anything that is not a single path element.
func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return common.Errorf(common.ErrorNotFound, "File not found")
	}
	return nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
