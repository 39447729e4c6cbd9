package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/db"
	"github.com/itsdone-dev/itsdone/internal/services"
	"github.com/itsdone-dev/itsdone/internal/utils"
)

func (h *Handler) CreateClient(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	var req services.ClientInput
	if !bindJSON(ctx, &req) {
		return
	}

	client, err := services.NewClientService(db.DB).Create(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, client)
}

func (h *Handler) ListClients(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	clients, err := services.NewClientService(db.DB).List(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, clients)
}

func (h *Handler) GetClient(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	clientID, ok := idParam(ctx, "client_id")
	if !ok {
		return
	}

	client, err := services.NewClientService(db.DB).Get(ctx.Request.Context(), userID, clientID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, client)
}

func (h *Handler) UpdateClient(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	clientID, ok := idParam(ctx, "client_id")
	if !ok {
		return
	}

	var req services.ClientInput
	if !bindJSON(ctx, &req) {
		return
	}

	client, err := services.NewClientService(db.DB).Update(ctx.Request.Context(), userID, clientID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, client)
}

func (h *Handler) PatchClient(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	clientID, ok := idParam(ctx, "client_id")
	if !ok {
		return
	}

	var req services.ClientPatch
	if !bindJSON(ctx, &req) {
		return
	}

	client, err := services.NewClientService(db.DB).Patch(ctx.Request.Context(), userID, clientID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, client)
}

func (h *Handler) DeleteClient(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	clientID, ok := idParam(ctx, "client_id")
	if !ok {
		return
	}

	if err := services.NewClientService(db.DB).Delete(ctx.Request.Context(), userID, clientID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Client deleted successfully"})
}

func (h *Handler) ClientStats(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	clientID, ok := idParam(ctx, "client_id")
	if !ok {
		return
	}

	stats, err := services.NewClientService(db.DB).Stats(ctx.Request.Context(), userID, clientID, time.Now())
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, stats)
}
