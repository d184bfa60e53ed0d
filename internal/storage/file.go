package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"wayfarer/pkg/traveltypes"
)

// FileKV stores each key as a JSON file under a directory.
type FileKV struct {
	dir string
}

// NewFileKV creates the directory if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: file store requires a directory", traveltypes.ErrStorage)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create store directory: %v", traveltypes.ErrStorage, err)
	}
	return &FileKV{dir: dir}, nil
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", traveltypes.ErrStorage, key, err)
	}
	return data, nil
}

// Put replaces the file atomically: write a temp file, then rename it over the target.
func (f *FileKV) Put(_ context.Context, key string, value []byte) error {
	target := f.path(key)
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", traveltypes.ErrStorage, key, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %v", traveltypes.ErrStorage, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: write %s: %v", traveltypes.ErrStorage, key, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("%w: write %s: %v", traveltypes.ErrStorage, key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("%w: write %s: %v", traveltypes.ErrStorage, key, err)
	}
	return nil
}

func (f *FileKV) Close() error { return nil }
