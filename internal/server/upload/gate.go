// Package upload decides which files may be stored and under what name.
package upload

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/resourcehub/internal/common"
)

// DefaultMaxSize is the upload ceiling used when none is configured.
const DefaultMaxSize int64 = 10 << 20

var (
	allowedExtensions = map[string]struct{}{
		".jpeg": {}, ".jpg": {}, ".png": {}, ".gif": {}, ".pdf": {}, ".mp4": {}, ".avi": {},
	}
	allowedMediaTypes = map[string]struct{}{
		"image/jpeg":      {},
		"image/png":       {},
		"image/gif":       {},
		"application/pdf": {},
		"video/mp4":       {},
		"video/x-msvideo": {},
	}
)

// Gate validates a candidate upload. Both the extension and the declared
// media type must be on their allow-lists.
type Gate struct {
	maxSize int64
}

// NewGate returns a Gate enforcing maxSize bytes; maxSize <= 0 selects
// DefaultMaxSize.
func NewGate(maxSize int64) *Gate {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Gate{maxSize: maxSize}
}

// MaxSize returns the size ceiling in bytes.
func (g *Gate) MaxSize() int64 { return g.maxSize }

// Check returns common.ErrUnsupportedMediaType or common.ErrPayloadTooLarge
// (wrapped in a *common.Error) when the file must be refused.
func (g *Gate) Check(filename, mediaType string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return common.Errorf(common.ErrUnsupportedMediaType, "Invalid file type! Only images, PDFs, and videos are allowed.")
	}

	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return common.Errorf(common.ErrUnsupportedMediaType, "Invalid file type! Only images, PDFs, and videos are allowed.")
	}
	if _, ok := allowedMediaTypes[mt]; !ok {
		return common.Errorf(common.ErrUnsupportedMediaType, "Invalid file type! Only images, PDFs, and videos are allowed.")
	}

	if size > g.maxSize {
		return common.Errorf(common.ErrPayloadTooLarge, "File too large")
	}
	return nil
}

// StoredName derives the storage name for an upload: the ingestion time in
// unix milliseconds, a dash, and the base name of the original file.
func StoredName(now time.Time, original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		base = "file"
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), base)
}
