package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/dmitrijs2005/resourcehub/internal/filex"
)

// LocalStore keeps files in a single directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates dir if needed and returns a store rooted there.
func NewLocalStore(dir string) (*LocalStore, error) {
	root, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStore{root: root}, nil
}

// Root returns the absolute storage directory.
func (s *LocalStore) Root() string { return s.root }

// Save writes r to name. An existing file with the same name is an error.
func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (err error) {
	if err := validName(name); err != nil {
		return err
	}

	path := filepath.Join(s.root, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o660)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("create %s: %w", name, err)
	}

	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", name, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = io.Copy(f, r); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Open returns the file contents. The caller must close the reader.
func (s *LocalStore) Open(ctx context.Context, name string) (io.ReadCloser, Object, error) {
	if err := validName(name); err != nil {
		return nil, Object{}, err
	}

	f, err := os.Open(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Object{}, common.Errorf(common.ErrorNotFound, "File not found")
		}
		return nil, Object{}, fmt.Errorf("open %s: %w", name, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Object{}, fmt.Errorf("stat %s: %w", name, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, Object{}, common.Errorf(common.ErrorNotFound, "File not found")
	}

	return f, Object{Name: name, Size: st.Size(), ContentType: contentType(name), ModTime: st.ModTime()}, nil
}

// Remove deletes name. A missing file is not an error.
func (s *LocalStore) Remove(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
