package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps files under Dir and serves them below BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func (l *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(l.Dir, filepath.FromSlash(clean)), nil
}

func (l *LocalStore) Put(ctx context.Context, key string, data []byte, _ string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	path, err := l.path(key)
	if err != nil {
		return Object{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Object{}, fmt.Errorf("create upload directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("write upload: %w", err)
	}

	return Object{
		Key:     key,
		URL:     strings.TrimSuffix(l.BaseURL, "/") + "/" + strings.TrimPrefix(key, "/"),
		Storage: BackendLocal,
		Size:    int64(len(data)),
	}, nil
}

func (l *LocalStore) Delete(_ context.Context, key string) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
