package models

import (
	"time"

	"gorm.io/datatypes"
)

type InAppNotification struct {
	BaseModel

	UserID  uint           `gorm:"not null;index" json:"user_id"`
	Type    string         `gorm:"not null" json:"type"`
	Title   string         `gorm:"not null" json:"title"`
	Message string         `json:"message"`
	Data    datatypes.JSON `json:"data"`
	Read    bool           `gorm:"column:is_read;not null;default:false;index" json:"read"`
	ReadAt  *time.Time     `json:"read_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
