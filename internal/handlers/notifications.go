package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/db"
	"github.com/itsdone-dev/itsdone/internal/services"
	"github.com/itsdone-dev/itsdone/internal/utils"
)

func (h *Handler) notificationService() *services.NotificationService {
	return services.NewNotificationService(db.DB, h.Notifier)
}

func (h *Handler) ListNotifications(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	unread, err := utils.GetBoolQuery(ctx, "unread")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notifications, err := h.notificationService().List(ctx.Request.Context(), userID, unread != nil && *unread)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, notifications)
}

func (h *Handler) UnreadNotificationCount(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	count, err := h.notificationService().UnreadCount(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *Handler) MarkNotificationRead(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "notification_id")
	if !ok {
		return
	}

	notification, err := h.notificationService().MarkRead(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, notification)
}

func (h *Handler) MarkAllNotificationsRead(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	updated, err := h.notificationService().MarkAllRead(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *Handler) DeleteNotification(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "notification_id")
	if !ok {
		return
	}

	if err := h.notificationService().Delete(ctx.Request.Context(), userID, id); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}

func (h *Handler) NotificationLogs(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	logs, err := h.notificationService().Logs(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, logs)
}

// CheckThresholds runs the threshold check for the current user right away.
func (h *Handler) CheckThresholds(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	thresholds := services.NewThresholdService(db.DB, h.Notifier, h.Config.DefaultAlertThreshold)

	alerts, err := thresholds.CheckUser(ctx.Request.Context(), userID, time.Now())
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"alerts": alerts})
}
