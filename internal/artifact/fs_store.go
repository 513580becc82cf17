// Package artifact provides keyed blob storage for uploaded documents and
// produced audio files, backed by either the local filesystem or a NATS
// JetStream object store.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/narration-service/internal/core"
)

const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// ErrInvalidKey indicates an artifact key that would escape the store
// directory.
var ErrInvalidKey = errors.New("invalid artifact key")

// FileStore keeps each artifact as one file inside a single directory.
// Keys are generated from job ids, never from user input, but the store
// still rejects anything that is not a bare filename.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	err := os.MkdirAll(dir, dirPermissions)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create directory %s: %w", core.ErrStorage, dir, err)
	}

	return &FileStore{dir: dir}, nil
}

// Save writes data under key, overwriting any previous artifact.
func (f *FileStore) Save(_ context.Context, key string, data []byte) error {
	path, err := f.resolve(key)
	if err != nil {
		return err
	}

	err = os.WriteFile(path, data, filePermissions)
	if err != nil {
		return fmt.Errorf("%w: failed to write artifact %s: %w", core.ErrStorage, key, err)
	}

	return nil
}

// Load reads the artifact stored under key.
func (f *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	path, err := f.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read artifact %s: %w", core.ErrStorage, key, err)
	}

	return data, nil
}

// Delete removes the artifact stored under key.
func (f *FileStore) Delete(_ context.Context, key string) error {
	path, err := f.resolve(key)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if err != nil {
		return fmt.Errorf("%w: failed to remove artifact %s: %w", core.ErrStorage, key, err)
	}

	return nil
}

func (f *FileStore) resolve(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key != filepath.Base(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return filepath.Join(f.dir, key), nil
}
