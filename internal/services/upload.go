package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/storage"
)

// allowedUploads maps accepted content types to the extension they are stored with.
var allowedUploads = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
}

type UploadService struct {
	store    storage.Store
	maxBytes int64
}

func NewUploadService(store storage.Store, maxBytes int64) *UploadService {
	return &UploadService{store: store, maxBytes: maxBytes}
}

func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// Store validates data and saves it under <userID>/<uuid><ext>.
func (s *UploadService) Store(ctx context.Context, userID uint, data []byte) (storage.Object, error) {
	if len(data) == 0 {
		return storage.Object{}, apperr.BadRequest("File is empty")
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return storage.Object{}, apperr.BadRequest("File exceeds the %d byte limit", s.maxBytes)
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedUploads[contentType]
	if !ok {
		return storage.Object{}, apperr.BadRequest("Unsupported file type %s", contentType)
	}

	if s.store == nil {
		return storage.Object{}, fmt.Errorf("no storage configured")
	}

	key := fmt.Sprintf("%d/%s%s", userID, uuid.NewString(), ext)

	return s.store.Put(ctx, key, data, contentType)
}
