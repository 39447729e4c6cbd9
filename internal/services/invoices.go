package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/models"
	"github.com/itsdone-dev/itsdone/internal/storage"
	"github.com/itsdone-dev/itsdone/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type InvoiceService struct {
	db    *gorm.DB
	store storage.Store
}

func NewInvoiceService(db *gorm.DB, store storage.Store) *InvoiceService {
	return &InvoiceService{db: db, store: store}
}

type CreateInvoiceInput struct {
	ClientID    *uint                `json:"client_id"`
	WorkHourIDs []uint               `json:"work_hour_ids" binding:"required"`
	Amount      *float64             `json:"amount"`
	DueDate     *string              `json:"due_date"`
	Notes       string               `json:"notes"`
	Status      models.InvoiceStatus `json:"status"`
}

type UpdateInvoiceInput struct {
	Amount  *float64 `json:"amount"`
	DueDate *string  `json:"due_date"`
	Notes   *string  `json:"notes"`
}

type InvoiceFilter struct {
	Status   *models.InvoiceStatus
	ClientID *uint
	From     *time.Time
	To       *time.Time
}

// invoiceDraft carries everything needed to write an invoice for a set of hours.
type invoiceDraft struct {
	userID  uint
	client  models.Client
	hours   []models.WorkHour
	status  models.InvoiceStatus
	amount  *float64
	dueDate *time.Time
	notes   string
	issued  time.Time
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	date, err := utils.ParseDate(strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperr.BadRequest("Invalid due date, expected YYYY-MM-DD")
	}
	return &date, nil
}

// Create bills the selected work hours. All of them must belong to the user,
// share a single client and not be attached to another active invoice.
func (s *InvoiceService) Create(ctx context.Context, userID uint, in CreateInvoiceInput) (*models.Invoice, error) {
	ids := uniqueIDs(in.WorkHourIDs)
	if len(ids) == 0 {
		return nil, apperr.BadRequest("At least one work hour is required")
	}

	status := models.NormalizeInvoiceStatus(in.Status)
	if status == "" {
		status = models.InvoicePending
	}
	if status != models.InvoiceDraft && status != models.InvoicePending {
		return nil, apperr.BadRequest("New invoices must be DRAFT or PENDING")
	}

	if in.Amount != nil && *in.Amount < 0 {
		return nil, apperr.BadRequest("Amount cannot be negative")
	}

	dueDate, err := parseOptionalDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	var invoiceID uint

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var hours []models.WorkHour
		err := tx.Preload("Project").
			Where("id IN ? AND user_id = ?", ids, userID).
			Order("date ASC, id ASC").
			Find(&hours).Error
		if err != nil {
			return err
		}

		if len(hours) != len(ids) {
			return apperr.BadRequest("Some work hours do not exist or do not belong to you")
		}

		clientID := hours[0].ClientID
		for _, wh := range hours[1:] {
			if wh.ClientID != clientID {
				return apperr.BadRequest("All work hours of an invoice must belong to the same client")
			}
		}
		if in.ClientID != nil && *in.ClientID != clientID {
			return apperr.BadRequest("Work hours do not belong to the selected client")
		}

		billed, err := activeInvoiceByWorkHour(tx, ids)
		if err != nil {
			return err
		}
		if len(billed) > 0 {
			already := make([]string, 0, len(billed))
			for _, id := range ids {
				if _, ok := billed[id]; ok {
					already = append(already, fmt.Sprint(id))
				}
			}
			return apperr.Conflict("Work hours already invoiced: %s", strings.Join(already, ", "))
		}

		client, err := ownedClient(tx, userID, clientID)
		if err != nil {
			return err
		}

		invoice, err := writeInvoice(tx, invoiceDraft{
			userID:  userID,
			client:  *client,
			hours:   hours,
			status:  status,
			amount:  in.Amount,
			dueDate: dueDate,
			notes:   in.Notes,
			issued:  time.Now(),
		})
		if err != nil {
			return err
		}

		invoiceID = invoice.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, userID, invoiceID)
}

// writeInvoice inserts the invoice and its work hour links inside tx.
func writeInvoice(tx *gorm.DB, d invoiceDraft) (*models.Invoice, error) {
	amount := 0.0
	if d.amount != nil {
		amount = *d.amount
	} else {
		for _, wh := range d.hours {
			amount += wh.Amount(d.client)
		}
	}

	issueDate := utils.TruncateDay(d.issued)

	dueDate := d.dueDate
	if dueDate == nil {
		days := defaultDueDays
		var settings models.Settings
		if err := tx.Where("user_id = ?", d.userID).First(&settings).Error; err == nil && settings.DefaultDueDays > 0 {
			days = settings.DefaultDueDays
		}
		due := issueDate.AddDate(0, 0, days)
		dueDate = &due
	}

	number, err := nextInvoiceNumber(tx, d.userID, issueDate)
	if err != nil {
		return nil, err
	}

	invoice := models.Invoice{
		UserID:    d.userID,
		ClientID:  d.client.ID,
		Number:    number,
		Amount:    utils.RoundMoney(amount),
		Currency:  d.client.Currency,
		Status:    d.status,
		IssueDate: issueDate,
		DueDate:   dueDate,
		Notes:     d.notes,
	}
	if invoice.Currency == "" {
		invoice.Currency = defaultCurrency
	}

	if err := tx.Create(&invoice).Error; err != nil {
		return nil, err
	}

	items := make([]models.InvoiceWorkHour, len(d.hours))
	for i, wh := range d.hours {
		items[i] = models.InvoiceWorkHour{InvoiceID: invoice.ID, WorkHourID: wh.ID}
	}
	if err := tx.Create(&items).Error; err != nil {
		return nil, err
	}

	return &invoice, nil
}

// nextInvoiceNumber numbers invoices per user and month: INV-YYYYMM-NNNN.
func nextInvoiceNumber(tx *gorm.DB, userID uint, issued time.Time) (string, error) {
	prefix := fmt.Sprintf("INV-%s-", issued.Format("200601"))

	var numbers []string
	err := tx.Model(&models.Invoice{}).
		Where("user_id = ? AND number LIKE ?", userID, prefix+"%").
		Pluck("number", &numbers).Error
	if err != nil {
		return "", err
	}

	highest := 0
	for _, number := range numbers {
		if seq, err := strconv.Atoi(strings.TrimPrefix(number, prefix)); err == nil && seq > highest {
			highest = seq
		}
	}

	return fmt.Sprintf("%s%04d", prefix, highest+1), nil
}

func (s *InvoiceService) List(ctx context.Context, userID uint, f InvoiceFilter) ([]models.Invoice, error) {
	query := s.db.WithContext(ctx).Preload("Client").Where("user_id = ?", userID)

	if f.Status != nil {
		if !f.Status.Valid() {
			return nil, apperr.BadRequest("Unknown invoice status %q", *f.Status)
		}
		query = query.Where("status = ?", *f.Status)
	}
	if f.ClientID != nil {
		query = query.Where("client_id = ?", *f.ClientID)
	}
	if f.From != nil {
		query = query.Where("issue_date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("issue_date < ?", f.To.AddDate(0, 0, 1))
	}

	invoices := []models.Invoice{}
	if err := query.Order("issue_date DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}

	return invoices, nil
}

func (s *InvoiceService) Get(ctx context.Context, userID, id uint) (*models.Invoice, error) {
	var invoice models.Invoice

	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Items.WorkHour.Project").
		Where("id = ? AND user_id = ?", id, userID).
		First(&invoice).Error
	if err != nil {
		return nil, notFound(err, "Invoice")
	}

	return &invoice, nil
}

func ownedInvoice(tx *gorm.DB, userID, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&invoice).Error; err != nil {
		return nil, notFound(err, "Invoice")
	}
	return &invoice, nil
}

func (s *InvoiceService) Update(ctx context.Context, userID, id uint, in UpdateInvoiceInput) (*models.Invoice, error) {
	tx := s.db.WithContext(ctx)

	invoice, err := ownedInvoice(tx, userID, id)
	if err != nil {
		return nil, err
	}

	if !invoice.Status.Editable() {
		return nil, apperr.Conflict("%s invoices cannot be edited", invoice.Status)
	}

	updates := make(map[string]interface{})

	if in.Amount != nil {
		if *in.Amount < 0 {
			return nil, apperr.BadRequest("Amount cannot be negative")
		}
		updates["amount"] = utils.RoundMoney(*in.Amount)
	}
	if in.DueDate != nil {
		dueDate, err := parseOptionalDate(in.DueDate)
		if err != nil {
			return nil, err
		}
		if dueDate != nil && dueDate.Before(invoice.IssueDate) {
			return nil, apperr.BadRequest("Due date cannot be before the issue date")
		}
		updates["due_date"] = dueDate
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}

	if len(updates) == 0 {
		return nil, apperr.BadRequest("No valid fields to update")
	}

	if err := tx.Model(invoice).Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.Get(ctx, userID, id)
}

// SetStatus moves an invoice along DRAFT -> PENDING -> PAID; DRAFT and
// PENDING invoices can also be canceled, which frees their hours.
func (s *InvoiceService) SetStatus(ctx context.Context, userID, id uint, next models.InvoiceStatus) (*models.Invoice, error) {
	next = models.NormalizeInvoiceStatus(next)
	if !next.Valid() {
		return nil, apperr.BadRequest("Unknown invoice status %q", next)
	}

	tx := s.db.WithContext(ctx)

	invoice, err := ownedInvoice(tx, userID, id)
	if err != nil {
		return nil, err
	}

	if !invoice.Status.CanTransition(next) {
		return nil, apperr.BadRequest("Cannot change invoice status from %s to %s", invoice.Status, next)
	}

	updates := map[string]interface{}{"status": next}
	if next == models.InvoicePaid {
		updates["paid_at"] = time.Now()
	}

	if err := tx.Model(invoice).Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.Get(ctx, userID, id)
}

// Delete removes a DRAFT or CANCELED invoice and its document.
func (s *InvoiceService) Delete(ctx context.Context, userID, id uint) error {
	var documentKey string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := ownedInvoice(tx, userID, id)
		if err != nil {
			return err
		}

		if invoice.Status != models.InvoiceDraft && invoice.Status != models.InvoiceCanceled {
			return apperr.Conflict("Only DRAFT or CANCELED invoices can be deleted")
		}

		if err := tx.Model(&models.NotificationLog{}).Where("invoice_id = ?", invoice.ID).Update("invoice_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceWorkHour{}).Error; err != nil {
			return err
		}

		documentKey = invoice.DocumentKey
		return tx.Delete(invoice).Error
	})
	if err != nil {
		return err
	}

	s.removeDocument(ctx, documentKey)
	return nil
}

// AttachDocument records an uploaded file as the invoice document, replacing any previous one.
func (s *InvoiceService) AttachDocument(ctx context.Context, userID, id uint, obj storage.Object) (*models.Invoice, error) {
	tx := s.db.WithContext(ctx)

	invoice, err := ownedInvoice(tx, userID, id)
	if err != nil {
		return nil, err
	}

	previous := invoice.DocumentKey

	err = tx.Model(invoice).Updates(map[string]interface{}{
		"document_url": obj.URL,
		"document_key": obj.Key,
	}).Error
	if err != nil {
		return nil, err
	}

	if previous != "" && previous != obj.Key {
		s.removeDocument(ctx, previous)
	}

	return s.Get(ctx, userID, id)
}

func (s *InvoiceService) removeDocument(ctx context.Context, key string) {
	if key == "" || s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		zap.L().Warn("failed to remove invoice document", zap.String("key", key), zap.Error(err))
	}
}
