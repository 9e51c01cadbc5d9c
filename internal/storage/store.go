// Package storage persists rendered documents as opaque objects.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrObjectNotFound is returned when no object exists under the requested key.
var ErrObjectNotFound = errors.New("storage: object not found")

// ErrInvalidKey is returned for empty, absolute or escaping keys.
var ErrInvalidKey = errors.New("storage: invalid object key")

// Object describes a stored blob.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	Location    string
}

// ObjectStore is the persisted-artifact boundary used by the documents service.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey lays objects out per owner and job: {owner}/{job}/{file}.
func ObjectKey(ownerID, jobID, fileName string) string {
	return path.Join(ownerID, jobID, fileName)
}

// CleanKey normalises key and rejects anything that could leave the store root.
func CleanKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" || strings.HasPrefix(trimmed, "/") || strings.ContainsRune(trimmed, '\\') {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(trimmed, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
