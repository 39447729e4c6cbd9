package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/db"
	"github.com/itsdone-dev/itsdone/internal/services"
	"github.com/itsdone-dev/itsdone/internal/utils"
)

func (h *Handler) GetSettings(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	settings, err := services.NewSettingsService(db.DB, h.Config.DefaultAlertThreshold).Get(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, settings)
}

func (h *Handler) UpdateSettings(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	var req services.UpdateSettingsInput
	if !bindJSON(ctx, &req) {
		return
	}

	settings, err := services.NewSettingsService(db.DB, h.Config.DefaultAlertThreshold).Update(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	h.triggerThresholdCheck(userID)

	ctx.JSON(http.StatusOK, settings)
}
