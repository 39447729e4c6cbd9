package models

type Client struct {
	BaseModel

	UserID     uint    `gorm:"not null;index" json:"user_id"`
	Name       string  `gorm:"not null" json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	Address    string  `json:"address"`
	HourlyRate float64 `gorm:"not null;default:0" json:"hourly_rate"`
	Currency   string  `gorm:"not null;default:'USD'" json:"currency"`
	Notes      string  `json:"notes"`

	// Relationships
	User      User       `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Projects  []Project  `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"projects,omitempty"`
	WorkHours []WorkHour `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Invoices  []Invoice  `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
