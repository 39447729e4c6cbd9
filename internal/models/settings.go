package models

type Settings struct {
	BaseModel

	UserID             uint    `gorm:"not null;uniqueIndex" json:"user_id"`
	AlertThreshold     float64 `gorm:"not null" json:"alert_threshold"` // hours per client per month
	NotificationEmail  string  `json:"notification_email"`
	NotificationPhone  string  `json:"notification_phone"`
	EmailNotifications bool    `gorm:"not null" json:"email_notifications"`
	InAppNotifications bool    `gorm:"not null" json:"in_app_notifications"`
	SMSNotifications   bool    `gorm:"not null;default:false" json:"sms_notifications"`
	DefaultDueDays     int     `gorm:"not null;default:30" json:"default_due_days"`
	Currency           string  `gorm:"not null;default:'USD'" json:"currency"`
}
