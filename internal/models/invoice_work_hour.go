package models

type InvoiceWorkHour struct {
	BaseModel

	InvoiceID  uint `gorm:"not null;uniqueIndex:idx_invoice_work_hour" json:"invoice_id"`
	WorkHourID uint `gorm:"not null;index;uniqueIndex:idx_invoice_work_hour" json:"work_hour_id"`

	// Relationships
	Invoice  Invoice  `gorm:"foreignKey:InvoiceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	WorkHour WorkHour `gorm:"foreignKey:WorkHourID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"work_hour"`
}
