package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalArchive writes raw responses under a filesystem root, creating
// directories on demand.
type LocalArchive struct {
	root string
}

// NewLocalArchive creates an archive rooted at root.
func NewLocalArchive(root string) *LocalArchive {
	return &LocalArchive{root: root}
}

// Save writes data to root/key, creating the parent directories first.
func (a *LocalArchive) Save(_ context.Context, key string, data []byte) error {
	path := filepath.Join(a.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write archive file: %w", err)
	}
	return nil
}

// Exists checks for an archived file at root/key.
func (a *LocalArchive) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(a.root, filepath.FromSlash(key)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
