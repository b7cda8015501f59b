package objstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects on the local filesystem. Used for development and
// tests; previews resolve through the server's own /uploads route.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (l *LocalStore) path(key string) string {
	// Keys contain a session id segment; keep the layout flat on disk.
	return filepath.Join(l.dir, strings.ReplaceAll(key, "/", "_"))
}

func (l *LocalStore) Put(_ context.Context, key, _ string, content []byte) error {
	if err := os.WriteFile(l.path(key), content, 0644); err != nil {
		return fmt.Errorf("local store put: %w", err)
	}
	return nil
}

func (l *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(l.path(key))
	if err != nil {
		return nil, fmt.Errorf("local store get: %w", err)
	}
	return data, nil
}

func (l *LocalStore) PresignGet(_ context.Context, key string) (string, error) {
	return "/uploads/" + strings.ReplaceAll(key, "/", "_"), nil
}

func (l *LocalStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(l.path(key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("local store delete: %w", err)
	}
	return nil
}
