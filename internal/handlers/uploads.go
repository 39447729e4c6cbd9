package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/internal/services"
	"github.com/itsdone-dev/itsdone/internal/storage"
	"github.com/itsdone-dev/itsdone/internal/utils"
	"go.uber.org/zap"
)

// storeUpload reads the multipart "file" field and stores it, answering the
// request itself on failure.
func (h *Handler) storeUpload(ctx *gin.Context, userID uint) (storage.Object, bool) {
	uploads := services.NewUploadService(h.Store, h.Config.UploadMaxBytes)

	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "A file is required"})
		return storage.Object{}, false
	}

	if limit := uploads.MaxBytes(); limit > 0 && header.Size > limit {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "File is too large"})
		return storage.Object{}, false
	}

	file, err := header.Open()
	if err != nil {
		respondError(ctx, err)
		return storage.Object{}, false
	}
	defer file.Close()

	reader := io.Reader(file)
	if limit := uploads.MaxBytes(); limit > 0 {
		reader = io.LimitReader(file, limit+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		respondError(ctx, err)
		return storage.Object{}, false
	}

	obj, err := uploads.Store(ctx.Request.Context(), userID, data)
	if err != nil {
		respondError(ctx, err)
		return storage.Object{}, false
	}

	zap.L().Info("file uploaded",
		zap.Uint("user_id", userID),
		zap.String("key", obj.Key),
		zap.String("storage", obj.Storage),
		zap.Int64("size", obj.Size),
	)

	return obj, true
}

func (h *Handler) Upload(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	obj, ok := h.storeUpload(ctx, userID)
	if !ok {
		return
	}

	ctx.JSON(http.StatusCreated, obj)
}
