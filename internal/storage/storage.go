package storage

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

const (
	BackendS3    = "s3"
	BackendLocal = "local"
)

// Object describes a stored file.
type Object struct {
	Key     string `json:"key"`
	URL     string `json:"url"`
	Storage string `json:"storage"`
	Size    int64  `json:"size"`
}

// Store persists uploaded files.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
}

// FallbackStore writes to Primary and falls back to Secondary when Primary fails.
type FallbackStore struct {
	Primary   Store
	Secondary Store
	Log       *zap.Logger
}

func (f *FallbackStore) Put(ctx context.Context, key string, data []byte, contentType string) (Object, error) {
	if f.Primary != nil {
		obj, err := f.Primary.Put(ctx, key, data, contentType)
		if err == nil {
			return obj, nil
		}
		f.logger().Warn("primary storage failed, falling back", zap.String("key", key), zap.Error(err))
	}

	if f.Secondary == nil {
		return Object{}, errors.New("no storage backend available")
	}

	return f.Secondary.Put(ctx, key, data, contentType)
}

// Delete removes key from every backend. Missing objects are not an error.
func (f *FallbackStore) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, s := range []Store{f.Primary, f.Secondary} {
		if s == nil {
			continue
		}
		if err := s.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FallbackStore) logger() *zap.Logger {
	if f.Log != nil {
		return f.Log
	}
	return zap.L()
}
