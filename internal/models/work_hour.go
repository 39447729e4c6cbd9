package models

import "time"

type WorkHour struct {
	BaseModel

	UserID      uint      `gorm:"not null;index" json:"user_id"`
	ClientID    uint      `gorm:"not null;index" json:"client_id"`
	ProjectID   *uint     `gorm:"index" json:"project_id"`
	Date        time.Time `gorm:"not null;index" json:"date"`
	Hours       float64   `gorm:"not null" json:"hours"`
	Description string    `json:"description"`

	// InvoiceID is the active invoice billing this entry, filled by queries that need it.
	InvoiceID *uint `gorm:"-" json:"invoice_id,omitempty"`

	// Relationships
	User    User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Client  *Client  `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// Amount returns the billable value of the entry.
func (w WorkHour) Amount(client Client) float64 {
	rate := client.HourlyRate
	if w.Project != nil {
		rate = w.Project.Rate(client)
	}
	return w.Hours * rate
}
