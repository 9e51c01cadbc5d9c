package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var _ ObjectStore = (*FS)(nil)

// FS stores objects as files below a root directory.
type FS struct {
	root string
}

// NewFS returns a filesystem store rooted at dir. An empty dir falls back to the temp directory.
func NewFS(dir string) *FS {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "tradesdesk-documents")
	}
	return &FS{root: dir}
}

// Root returns the base directory.
func (s *FS) Root() string { return s.root }

// Put writes body under key. The file appears atomically.
func (s *FS) Put(ctx context.Context, key, contentType string, body []byte) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	target, cleaned, err := s.resolve(key)
	if err != nil {
		return Object{}, err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Object{}, fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("storage: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return Object{}, fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return Object{}, fmt.Errorf("storage: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return Object{}, fmt.Errorf("storage: rename: %w", err)
	}
	return Object{Key: cleaned, Size: int64(len(body)), ContentType: contentType, Location: target}, nil
}

// Get reads the object stored under key.
func (s *FS) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, _, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("storage: read: %w", err)
	}
	return data, nil
}

// Delete removes the object under key. Missing objects are not an error.
func (s *FS) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, _, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove: %w", err)
	}
	return nil
}

func (s *FS) resolve(key string) (string, string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), cleaned, nil
}
