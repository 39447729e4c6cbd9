package models

import (
	"strings"
	"time"
)

type InvoiceStatus string

const (
	InvoiceDraft    InvoiceStatus = "DRAFT"
	InvoicePending  InvoiceStatus = "PENDING"
	InvoicePaid     InvoiceStatus = "PAID"
	InvoiceCanceled InvoiceStatus = "CANCELED"
)

// NormalizeInvoiceStatus accepts statuses in any case.
func NormalizeInvoiceStatus(raw InvoiceStatus) InvoiceStatus {
	return InvoiceStatus(strings.ToUpper(strings.TrimSpace(string(raw))))
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoicePending, InvoicePaid, InvoiceCanceled:
		return true
	}
	return false
}

// CanTransition reports whether an invoice may move from s to next.
func (s InvoiceStatus) CanTransition(next InvoiceStatus) bool {
	switch s {
	case InvoiceDraft:
		return next == InvoicePending || next == InvoiceCanceled
	case InvoicePending:
		return next == InvoicePaid || next == InvoiceCanceled
	}
	return false
}

// Editable reports whether amount, dates and notes may still change.
func (s InvoiceStatus) Editable() bool {
	return s == InvoiceDraft || s == InvoicePending
}

type Invoice struct {
	BaseModel

	UserID      uint          `gorm:"not null;index;uniqueIndex:idx_invoice_user_number" json:"user_id"`
	ClientID    uint          `gorm:"not null;index" json:"client_id"`
	Number      string        `gorm:"not null;uniqueIndex:idx_invoice_user_number" json:"number"`
	Amount      float64       `gorm:"not null" json:"amount"`
	Currency    string        `gorm:"not null;default:'USD'" json:"currency"`
	Status      InvoiceStatus `gorm:"not null;index" json:"status"`
	IssueDate   time.Time     `gorm:"not null" json:"issue_date"`
	DueDate     *time.Time    `json:"due_date"`
	PaidAt      *time.Time    `json:"paid_at"`
	Notes       string        `json:"notes"`
	DocumentURL string        `json:"document_url"`
	DocumentKey string        `json:"-"`

	// Relationships
	User   User              `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Client *Client           `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Items  []InvoiceWorkHour `gorm:"foreignKey:InvoiceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items,omitempty"`
}
