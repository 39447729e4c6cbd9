package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/internal/utils"
)

// WebSocket streams the user's notification events.
func (h *Handler) WebSocket(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	if h.Hub == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Realtime updates are unavailable"})
		return
	}

	h.Hub.Serve(ctx, userID)
}
