package models

const NotificationTypeHoursThreshold = "HOURS_THRESHOLD"

// NotificationLog records a threshold alert so it is sent at most once per month.
type NotificationLog struct {
	BaseModel

	UserID    uint    `gorm:"not null;uniqueIndex:idx_notification_dedup" json:"user_id"`
	ClientID  uint    `gorm:"not null;uniqueIndex:idx_notification_dedup" json:"client_id"`
	Type      string  `gorm:"not null;size:64;uniqueIndex:idx_notification_dedup" json:"type"`
	Threshold float64 `gorm:"not null;uniqueIndex:idx_notification_dedup" json:"threshold"`
	Month     string  `gorm:"not null;size:7;uniqueIndex:idx_notification_dedup" json:"month"` // YYYY-MM
	ProjectID *uint   `json:"project_id"`
	InvoiceID *uint   `json:"invoice_id"`
	Hours     float64 `gorm:"not null" json:"hours"`
	Channels  string  `json:"channels"` // comma separated list of channels that delivered

	// Relationships
	User    User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Client  Client   `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Invoice *Invoice `gorm:"foreignKey:InvoiceID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
}
