package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/db"
	"github.com/itsdone-dev/itsdone/internal/models"
	"github.com/itsdone-dev/itsdone/internal/services"
	"github.com/itsdone-dev/itsdone/internal/utils"
	"go.uber.org/zap"
)

func (h *Handler) invoiceService() *services.InvoiceService {
	return services.NewInvoiceService(db.DB, h.Store)
}

func (h *Handler) CreateInvoice(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	var req services.CreateInvoiceInput
	if !bindJSON(ctx, &req) {
		return
	}

	invoice, err := h.invoiceService().Create(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	zap.L().Info("invoice created",
		zap.Uint("user_id", userID),
		zap.Uint("invoice_id", invoice.ID),
		zap.String("number", invoice.Number),
	)

	ctx.JSON(http.StatusCreated, invoice)
}

func (h *Handler) ListInvoices(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}

	var (
		filter services.InvoiceFilter
		err    error
	)

	if raw := ctx.Query("status"); raw != "" {
		status := models.NormalizeInvoiceStatus(models.InvoiceStatus(raw))
		filter.Status = &status
	}
	if filter.ClientID, err = utils.GetUintQuery(ctx, "client_id"); err == nil {
		if filter.From, err = utils.GetDateQuery(ctx, "from"); err == nil {
			filter.To, err = utils.GetDateQuery(ctx, "to")
		}
	}
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invoices, err := h.invoiceService().List(ctx.Request.Context(), userID, filter)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, invoices)
}

func (h *Handler) GetInvoice(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "invoice_id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService().Get(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, invoice)
}

func (h *Handler) UpdateInvoice(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "invoice_id")
	if !ok {
		return
	}

	var req services.UpdateInvoiceInput
	if !bindJSON(ctx, &req) {
		return
	}

	invoice, err := h.invoiceService().Update(ctx.Request.Context(), userID, id, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, invoice)
}

func (h *Handler) SetInvoiceStatus(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "invoice_id")
	if !ok {
		return
	}

	var req struct {
		Status models.InvoiceStatus `json:"status" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}

	invoice, err := h.invoiceService().SetStatus(ctx.Request.Context(), userID, id, req.Status)
	if err != nil {
		respondError(ctx, err)
		return
	}

	zap.L().Info("invoice status changed",
		zap.Uint("invoice_id", invoice.ID),
		zap.String("status", string(invoice.Status)),
	)

	ctx.JSON(http.StatusOK, invoice)
}

func (h *Handler) DeleteInvoice(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "invoice_id")
	if !ok {
		return
	}

	if err := h.invoiceService().Delete(ctx.Request.Context(), userID, id); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Invoice deleted successfully"})
}

func (h *Handler) UploadInvoiceDocument(ctx *gin.Context) {
	userID, ok := utils.RequireUserID(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "invoice_id")
	if !ok {
		return
	}

	// ownership first so nothing is stored for someone else's invoice
	if _, err := h.invoiceService().Get(ctx.Request.Context(), userID, id); err != nil {
		respondError(ctx, err)
		return
	}

	obj, ok := h.storeUpload(ctx, userID)
	if !ok {
		return
	}

	invoice, err := h.invoiceService().AttachDocument(ctx.Request.Context(), userID, id, obj)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, invoice)
}
