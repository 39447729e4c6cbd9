package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/db"
	"github.com/itsdone-dev/itsdone/internal/services"
	"github.com/itsdone-dev/itsdone/internal/utils"
)

func (h *Handler) GetDashboard(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	board, err := services.NewDashboardService(db.DB, h.Config.DefaultAlertThreshold).Get(ctx.Request.Context(), userID, time.Now())
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, board)
}
