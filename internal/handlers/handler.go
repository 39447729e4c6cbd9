package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/config"
	"github.com/itsdone-dev/itsdone/internal/probes"
	"github.com/itsdone-dev/itsdone/internal/realtime"
	"github.com/itsdone-dev/itsdone/internal/services"
	"github.com/itsdone-dev/itsdone/internal/storage"
	"github.com/itsdone-dev/itsdone/internal/utils"
	"go.uber.org/zap"
)

// Handler serves the JSON API. Services are built per request on db.DB.
type Handler struct {
	Config   config.Config
	Notifier *services.Notifier
	Store    storage.Store
	Hub      *realtime.Hub

	// Probes are the optional dependencies reported by the health check.
	Probes []probes.Probe

	// TriggerThresholdCheck queues a background threshold check for a user.
	TriggerThresholdCheck func(userID uint)
}

func New(cfg config.Config, notifier *services.Notifier, store storage.Store, hub *realtime.Hub) *Handler {
	return &Handler{
		Config:   cfg,
		Notifier: notifier,
		Store:    store,
		Hub:      hub,
	}
}

func (h *Handler) triggerThresholdCheck(userID uint) {
	if h.TriggerThresholdCheck != nil {
		h.TriggerThresholdCheck(userID)
	}
}

// respondError writes application errors with their status and hides everything else behind a 500.
func respondError(ctx *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		ctx.JSON(appErr.Status(), gin.H{"error": appErr.Message})
		return
	}

	zap.L().Error("request failed",
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.FullPath()),
		zap.Error(err),
	)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func bindJSON(ctx *gin.Context, dst any) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		zap.L().Debug("failed to bind JSON", zap.String("path", ctx.FullPath()), zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return false
	}
	return true
}

// idParam reads a positive numeric path parameter, answering 400 otherwise.
func idParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := utils.GetIDParam(ctx, name)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return id, true
}
