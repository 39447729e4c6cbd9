package services

import (
	"context"
	"errors"
	"strings"

	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/models"
	"gorm.io/gorm"
)

const defaultDueDays = 30

type SettingsService struct {
	db               *gorm.DB
	defaultThreshold float64
}

func NewSettingsService(db *gorm.DB, defaultThreshold float64) *SettingsService {
	return &SettingsService{db: db, defaultThreshold: defaultThreshold}
}

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings(userID uint, threshold float64) models.Settings {
	return models.Settings{
		UserID:             userID,
		AlertThreshold:     threshold,
		EmailNotifications: true,
		InAppNotifications: true,
		SMSNotifications:   false,
		DefaultDueDays:     defaultDueDays,
		Currency:           defaultCurrency,
	}
}

// Get returns the user's settings, creating the defaults on first access.
func (s *SettingsService) Get(ctx context.Context, userID uint) (*models.Settings, error) {
	return s.get(s.db.WithContext(ctx), userID)
}

func (s *SettingsService) get(tx *gorm.DB, userID uint) (*models.Settings, error) {
	var settings models.Settings

	err := tx.Where("user_id = ?", userID).First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	settings = DefaultSettings(userID, s.defaultThreshold)
	if createErr := tx.Create(&settings).Error; createErr != nil {
		// Another request may have created the row first.
		if err := tx.Where("user_id = ?", userID).First(&settings).Error; err != nil {
			return nil, createErr
		}
	}

	return &settings, nil
}

type UpdateSettingsInput struct {
	AlertThreshold     *float64 `json:"alert_threshold"`
	NotificationEmail  *string  `json:"notification_email"`
	NotificationPhone  *string  `json:"notification_phone"`
	EmailNotifications *bool    `json:"email_notifications"`
	InAppNotifications *bool    `json:"in_app_notifications"`
	SMSNotifications   *bool    `json:"sms_notifications"`
	DefaultDueDays     *int     `json:"default_due_days"`
	Currency           *string  `json:"currency"`
}

func (s *SettingsService) Update(ctx context.Context, userID uint, in UpdateSettingsInput) (*models.Settings, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.AlertThreshold != nil {
		if *in.AlertThreshold <= 0 {
			return nil, apperr.BadRequest("Alert threshold must be greater than zero")
		}
		settings.AlertThreshold = *in.AlertThreshold
	}

	if in.NotificationEmail != nil {
		email := normalizeEmail(*in.NotificationEmail)
		if email != "" && !validEmail(email) {
			return nil, apperr.BadRequest("Notification email is not a valid address")
		}
		settings.NotificationEmail = email
	}

	if in.NotificationPhone != nil {
		phone := strings.ReplaceAll(strings.TrimSpace(*in.NotificationPhone), " ", "")
		if phone != "" && !phonePattern.MatchString(phone) {
			return nil, apperr.BadRequest("Notification phone must be in international format, e.g. +15551234567")
		}
		settings.NotificationPhone = phone
	}

	if in.EmailNotifications != nil {
		settings.EmailNotifications = *in.EmailNotifications
	}
	if in.InAppNotifications != nil {
		settings.InAppNotifications = *in.InAppNotifications
	}
	if in.SMSNotifications != nil {
		settings.SMSNotifications = *in.SMSNotifications
	}
	if settings.SMSNotifications && settings.NotificationPhone == "" {
		return nil, apperr.BadRequest("A notification phone is required to enable SMS notifications")
	}

	if in.DefaultDueDays != nil {
		if *in.DefaultDueDays < 1 || *in.DefaultDueDays > 365 {
			return nil, apperr.BadRequest("Default due days must be between 1 and 365")
		}
		settings.DefaultDueDays = *in.DefaultDueDays
	}

	if in.Currency != nil {
		currency, err := normalizeCurrency(*in.Currency)
		if err != nil {
			return nil, err
		}
		settings.Currency = currency
	}

	if err := s.db.WithContext(ctx).Save(settings).Error; err != nil {
		return nil, err
	}

	return settings, nil
}
