package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/db"
	"github.com/itsdone-dev/itsdone/internal/services"
	"github.com/itsdone-dev/itsdone/internal/utils"
)

func (h *Handler) CreateWorkHour(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	var req services.WorkHourInput
	if !bindJSON(ctx, &req) {
		return
	}

	wh, err := services.NewWorkHourService(db.DB).Create(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	h.triggerThresholdCheck(userID)

	ctx.JSON(http.StatusCreated, wh)
}

func workHourFilter(ctx *gin.Context) (services.WorkHourFilter, error) {
	var (
		f   services.WorkHourFilter
		err error
	)

	if f.From, err = utils.GetDateQuery(ctx, "from"); err != nil {
		return f, err
	}
	if f.To, err = utils.GetDateQuery(ctx, "to"); err != nil {
		return f, err
	}
	if f.ClientID, err = utils.GetUintQuery(ctx, "client_id"); err != nil {
		return f, err
	}
	if f.ProjectID, err = utils.GetUintQuery(ctx, "project_id"); err != nil {
		return f, err
	}
	if f.Billed, err = utils.GetBoolQuery(ctx, "billed"); err != nil {
		return f, err
	}

	return f, nil
}

func (h *Handler) ListWorkHours(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	filter, err := workHourFilter(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hours, err := services.NewWorkHourService(db.DB).List(ctx.Request.Context(), userID, filter)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, hours)
}

func (h *Handler) WorkHourSummary(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	from, err := utils.GetDateQuery(ctx, "from")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := utils.GetDateQuery(ctx, "to")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := services.NewWorkHourService(db.DB).Summary(ctx.Request.Context(), userID, from, to)
	if err != nil {
		respondError(ctx, err)
		return
	}

	total := 0.0
	for _, row := range rows {
		total += row.Hours
	}

	ctx.JSON(http.StatusOK, gin.H{
		"total_hours": total,
		"groups":      rows,
	})
}

func (h *Handler) GetWorkHour(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "work_hour_id")
	if !ok {
		return
	}

	wh, err := services.NewWorkHourService(db.DB).Get(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, wh)
}

func (h *Handler) UpdateWorkHour(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "work_hour_id")
	if !ok {
		return
	}

	var req services.WorkHourPatch
	if !bindJSON(ctx, &req) {
		return
	}

	wh, err := services.NewWorkHourService(db.DB).Update(ctx.Request.Context(), userID, id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	h.triggerThresholdCheck(userID)

	ctx.JSON(http.StatusOK, wh)
}

func (h *Handler) DeleteWorkHour(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "work_hour_id")
	if !ok {
		return
	}

	if err := services.NewWorkHourService(db.DB).Delete(ctx.Request.Context(), userID, id); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Work hour deleted successfully"})
}
