package services

import (
	"context"
	"strings"
	"time"

	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/models"
	"github.com/itsdone-dev/itsdone/internal/utils"
	"gorm.io/gorm"
)

type ClientService struct {
	db *gorm.DB
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db}
}

type ClientInput struct {
	Name       string  `json:"name" binding:"required"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	Address    string  `json:"address"`
	HourlyRate float64 `json:"hourly_rate"`
	Currency   string  `json:"currency"`
	Notes      string  `json:"notes"`
}

func (in ClientInput) apply(client *models.Client) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperr.BadRequest("Client name is required")
	}

	email := normalizeEmail(in.Email)
	if email != "" && !validEmail(email) {
		return apperr.BadRequest("Client email is not a valid address")
	}

	if in.HourlyRate < 0 {
		return apperr.BadRequest("Hourly rate cannot be negative")
	}

	currency, err := normalizeCurrency(in.Currency)
	if err != nil {
		return err
	}

	client.Name = name
	client.Email = email
	client.Phone = strings.TrimSpace(in.Phone)
	client.Address = strings.TrimSpace(in.Address)
	client.HourlyRate = in.HourlyRate
	client.Currency = currency
	client.Notes = in.Notes
	return nil
}

func (s *ClientService) Create(ctx context.Context, userID uint, in ClientInput) (*models.Client, error) {
	client := models.Client{UserID: userID}
	if err := in.apply(&client); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}

	return &client, nil
}

func (s *ClientService) List(ctx context.Context, userID uint) ([]models.Client, error) {
	clients := []models.Client{}

	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC, id ASC").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}

	return clients, nil
}

func (s *ClientService) Get(ctx context.Context, userID, clientID uint) (*models.Client, error) {
	var client models.Client

	err := s.db.WithContext(ctx).
		Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("id = ? AND user_id = ?", clientID, userID).
		First(&client).Error
	if err != nil {
		return nil, notFound(err, "Client")
	}

	return &client, nil
}

// owned loads a client of the user without relations.
func ownedClient(tx *gorm.DB, userID, clientID uint) (*models.Client, error) {
	var client models.Client
	if err := tx.Where("id = ? AND user_id = ?", clientID, userID).First(&client).Error; err != nil {
		return nil, notFound(err, "Client")
	}
	return &client, nil
}

func (s *ClientService) Update(ctx context.Context, userID, clientID uint, in ClientInput) (*models.Client, error) {
	tx := s.db.WithContext(ctx)

	client, err := ownedClient(tx, userID, clientID)
	if err != nil {
		return nil, err
	}

	if err := in.apply(client); err != nil {
		return nil, err
	}

	if err := tx.Save(client).Error; err != nil {
		return nil, err
	}

	return client, nil
}

// ClientPatch carries the fields of a partial update. Nil fields are left unchanged.
type ClientPatch struct {
	Name       *string  `json:"name"`
	Email      *string  `json:"email"`
	Phone      *string  `json:"phone"`
	Address    *string  `json:"address"`
	HourlyRate *float64 `json:"hourly_rate"`
	Currency   *string  `json:"currency"`
	Notes      *string  `json:"notes"`
}

func (p ClientPatch) merge(client models.Client) ClientInput {
	in := ClientInput{
		Name:       client.Name,
		Email:      client.Email,
		Phone:      client.Phone,
		Address:    client.Address,
		HourlyRate: client.HourlyRate,
		Currency:   client.Currency,
		Notes:      client.Notes,
	}

	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Email != nil {
		in.Email = *p.Email
	}
	if p.Phone != nil {
		in.Phone = *p.Phone
	}
	if p.Address != nil {
		in.Address = *p.Address
	}
	if p.HourlyRate != nil {
		in.HourlyRate = *p.HourlyRate
	}
	if p.Currency != nil {
		in.Currency = *p.Currency
	}
	if p.Notes != nil {
		in.Notes = *p.Notes
	}

	return in
}

// Patch updates only the fields present in p.
func (s *ClientService) Patch(ctx context.Context, userID, clientID uint, p ClientPatch) (*models.Client, error) {
	tx := s.db.WithContext(ctx)

	client, err := ownedClient(tx, userID, clientID)
	if err != nil {
		return nil, err
	}

	if err := p.merge(*client).apply(client); err != nil {
		return nil, err
	}

	if err := tx.Save(client).Error; err != nil {
		return nil, err
	}

	return client, nil
}

// Delete removes a client with its projects and hours. Clients with open
// or paid invoices cannot be deleted.
func (s *ClientService) Delete(ctx context.Context, userID, clientID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := ownedClient(tx, userID, clientID)
		if err != nil {
			return err
		}

		var active int64
		err = tx.Model(&models.Invoice{}).
			Where("client_id = ? AND status <> ?", client.ID, models.InvoiceCanceled).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active > 0 {
			return apperr.Conflict("Client has %d invoice(s) that are not canceled", active)
		}

		invoiceIDs := tx.Model(&models.Invoice{}).Select("id").Where("client_id = ?", client.ID)

		if err := tx.Where("invoice_id IN (?)", invoiceIDs).Delete(&models.InvoiceWorkHour{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", client.ID).Delete(&models.NotificationLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", client.ID).Delete(&models.Invoice{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", client.ID).Delete(&models.WorkHour{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", client.ID).Delete(&models.Project{}).Error; err != nil {
			return err
		}

		return tx.Delete(client).Error
	})
}

type ClientStats struct {
	ClientID       uint                   `json:"client_id"`
	TotalHours     float64                `json:"total_hours"`
	MonthHours     float64                `json:"month_hours"`
	UnbilledHours  float64                `json:"unbilled_hours"`
	UnbilledAmount float64                `json:"unbilled_amount"`
	Invoices       map[string]StatusTotal `json:"invoices"`
}

type StatusTotal struct {
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

func (s *ClientService) Stats(ctx context.Context, userID, clientID uint, now time.Time) (*ClientStats, error) {
	tx := s.db.WithContext(ctx)

	client, err := ownedClient(tx, userID, clientID)
	if err != nil {
		return nil, err
	}

	stats := &ClientStats{ClientID: client.ID, Invoices: emptyStatusTotals()}

	if err := sumHours(tx.Where("client_id = ?", client.ID), &stats.TotalHours); err != nil {
		return nil, err
	}

	start, end, _ := utils.MonthWindow(now)
	monthScope := tx.Where("client_id = ? AND date >= ? AND date < ?", client.ID, start, end)
	if err := sumHours(monthScope, &stats.MonthHours); err != nil {
		return nil, err
	}

	var unbilled []models.WorkHour
	err = tx.Preload("Project").
		Where("client_id = ? AND id NOT IN (?)", client.ID, billedWorkHours(tx)).
		Find(&unbilled).Error
	if err != nil {
		return nil, err
	}
	for _, wh := range unbilled {
		stats.UnbilledHours += wh.Hours
		stats.UnbilledAmount += wh.Amount(*client)
	}
	stats.UnbilledAmount = utils.RoundMoney(stats.UnbilledAmount)

	totals, err := invoiceTotals(tx.Where("client_id = ?", client.ID))
	if err != nil {
		return nil, err
	}
	for status, total := range totals {
		stats.Invoices[status] = total
	}

	return stats, nil
}

func sumHours(scope *gorm.DB, out *float64) error {
	var total struct{ Total float64 }
	if err := scope.Model(&models.WorkHour{}).Select("COALESCE(SUM(hours), 0) AS total").Scan(&total).Error; err != nil {
		return err
	}
	*out = total.Total
	return nil
}

func emptyStatusTotals() map[string]StatusTotal {
	return map[string]StatusTotal{
		string(models.InvoiceDraft):    {},
		string(models.InvoicePending):  {},
		string(models.InvoicePaid):     {},
		string(models.InvoiceCanceled): {},
	}
}

func invoiceTotals(scope *gorm.DB) (map[string]StatusTotal, error) {
	var rows []struct {
		Status string
		Count  int64
		Amount float64
	}

	err := scope.Model(&models.Invoice{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]StatusTotal, len(rows))
	for _, row := range rows {
		totals[row.Status] = StatusTotal{Count: row.Count, Amount: utils.RoundMoney(row.Amount)}
	}
	return totals, nil
}
