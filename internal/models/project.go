package models

type Project struct {
	BaseModel

	ClientID       uint     `gorm:"not null;index" json:"client_id"`
	UserID         uint     `gorm:"not null;index" json:"user_id"`
	Name           string   `gorm:"not null" json:"name"`
	Description    string   `json:"description"`
	HourlyRate     *float64 `json:"hourly_rate"`     // overrides the client rate when set
	AlertThreshold *float64 `json:"alert_threshold"` // hours per month, overrides the user setting when set
	Active         bool     `gorm:"not null" json:"active"`

	// Relationships
	Client    Client     `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	WorkHours []WorkHour `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
}

// Rate returns the hourly rate billed for work on this project.
func (p Project) Rate(client Client) float64 {
	if p.HourlyRate != nil {
		return *p.HourlyRate
	}
	return client.HourlyRate
}
