package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/itsdone-dev/itsdone/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationEvent is the websocket payload announcing a new in-app notification.
type NotificationEvent struct {
	Type         string                    `json:"type"`
	Notification *models.InAppNotification `json:"notification"`
}

type NotificationService struct {
	db       *gorm.DB
	notifier *Notifier
}

func NewNotificationService(db *gorm.DB, notifier *Notifier) *NotificationService {
	return &NotificationService{db: db, notifier: notifier}
}

// Create stores an in-app notification and pushes it to the user's open connections.
func (s *NotificationService) Create(ctx context.Context, userID uint, kind, title, message string, data any) (*models.InAppNotification, error) {
	notification := models.InAppNotification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		notification.Data = datatypes.JSON(raw)
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, err
	}

	s.notifier.Push(userID, NotificationEvent{Type: "notification", Notification: &notification})

	return &notification, nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool) ([]models.InAppNotification, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	notifications := []models.InAppNotification{}
	if err := query.Order("created_at DESC, id DESC").Limit(100).Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.InAppNotification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (*models.InAppNotification, error) {
	tx := s.db.WithContext(ctx)

	var notification models.InAppNotification
	if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&notification).Error; err != nil {
		return nil, notFound(err, "Notification")
	}

	if notification.Read {
		return &notification, nil
	}

	now := time.Now()
	if err := tx.Model(&notification).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, err
	}

	notification.Read = true
	notification.ReadAt = &now
	return &notification, nil
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.InAppNotification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return result.RowsAffected, result.Error
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.InAppNotification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "Notification")
	}
	return nil
}

// Logs lists the threshold alerts sent to the user, newest first.
func (s *NotificationService) Logs(ctx context.Context, userID uint) ([]models.NotificationLog, error) {
	logs := []models.NotificationLog{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
