package services

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/models"
	"gorm.io/gorm"
)

var (
	phonePattern    = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

const defaultCurrency = "USD"

// notFound converts gorm's missing-row error into an application NotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s not found", what)
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func normalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return defaultCurrency, nil
	}
	if !currencyPattern.MatchString(currency) {
		return "", apperr.BadRequest("Currency must be a three letter ISO code")
	}
	return currency, nil
}

// billedWorkHours selects ids of work hours attached to an invoice that is not canceled.
func billedWorkHours(tx *gorm.DB) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.InvoiceWorkHour{}).
		Select("invoice_work_hours.work_hour_id").
		Joins("JOIN invoices ON invoices.id = invoice_work_hours.invoice_id").
		Where("invoices.status <> ?", models.InvoiceCanceled)
}

// activeInvoiceByWorkHour maps each billed work hour among ids to its invoice id.
func activeInvoiceByWorkHour(tx *gorm.DB, ids []uint) (map[uint]uint, error) {
	result := make(map[uint]uint)
	if len(ids) == 0 {
		return result, nil
	}

	var rows []struct {
		WorkHourID uint
		InvoiceID  uint
	}

	err := tx.Model(&models.InvoiceWorkHour{}).
		Select("invoice_work_hours.work_hour_id, invoice_work_hours.invoice_id").
		Joins("JOIN invoices ON invoices.id = invoice_work_hours.invoice_id").
		Where("invoices.status <> ? AND invoice_work_hours.work_hour_id IN ?", models.InvoiceCanceled, ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.WorkHourID] = row.InvoiceID
	}
	return result, nil
}
