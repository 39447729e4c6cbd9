package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/db"
	"github.com/itsdone-dev/itsdone/internal/services"
	"github.com/itsdone-dev/itsdone/internal/utils"
)

func (h *Handler) CreateProject(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	clientID, ok := idParam(ctx, "client_id")
	if !ok {
		return
	}

	var req services.ProjectInput
	if !bindJSON(ctx, &req) {
		return
	}

	project, err := services.NewProjectService(db.DB).Create(ctx.Request.Context(), userID, clientID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, project)
}

// ListProjects serves both /clients/:client_id/projects and /projects?client_id=.
func (h *Handler) ListProjects(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	var clientID *uint
	if ctx.Param("client_id") != "" {
		id, ok := idParam(ctx, "client_id")
		if !ok {
			return
		}
		clientID = &id
	} else {
		id, err := utils.GetUintQuery(ctx, "client_id")
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		clientID = id
	}

	projects, err := services.NewProjectService(db.DB).List(ctx.Request.Context(), userID, clientID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, projects)
}

func (h *Handler) GetProject(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	project, err := services.NewProjectService(db.DB).Get(ctx.Request.Context(), userID, projectID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, project)
}

func (h *Handler) UpdateProject(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	var req services.ProjectInput
	if !bindJSON(ctx, &req) {
		return
	}

	project, err := services.NewProjectService(db.DB).Update(ctx.Request.Context(), userID, projectID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	// the alert threshold may have dropped below this month's hours
	h.triggerThresholdCheck(userID)

	ctx.JSON(http.StatusOK, project)
}

func (h *Handler) PatchProject(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	var req services.ProjectPatch
	if !bindJSON(ctx, &req) {
		return
	}

	project, err := services.NewProjectService(db.DB).Patch(ctx.Request.Context(), userID, projectID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	h.triggerThresholdCheck(userID)

	ctx.JSON(http.StatusOK, project)
}

func (h *Handler) DeleteProject(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	if err := services.NewProjectService(db.DB).Delete(ctx.Request.Context(), userID, projectID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}
