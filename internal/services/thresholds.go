package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itsdone-dev/itsdone/internal/mail"
	"github.com/itsdone-dev/itsdone/internal/models"
	"github.com/itsdone-dev/itsdone/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ThresholdAlert describes one alert raised by a threshold check.
type ThresholdAlert struct {
	ClientID    uint     `json:"client_id"`
	ClientName  string   `json:"client_name"`
	ProjectID   *uint    `json:"project_id"`
	ProjectName string   `json:"project_name,omitempty"`
	Hours       float64  `json:"hours"`
	Threshold   float64  `json:"threshold"`
	Month       string   `json:"month"`
	InvoiceID   *uint    `json:"invoice_id"`
	Channels    []string `json:"channels"`
}

type ThresholdService struct {
	db               *gorm.DB
	notifier         *Notifier
	defaultThreshold float64
}

func NewThresholdService(db *gorm.DB, notifier *Notifier, defaultThreshold float64) *ThresholdService {
	return &ThresholdService{db: db, notifier: notifier, defaultThreshold: defaultThreshold}
}

type hoursGroup struct {
	ClientID         uint
	ClientName       string
	ClientEmail      string
	ProjectID        *uint
	ProjectName      string
	ProjectThreshold *float64
	Total            float64
}

func (g hoursGroup) threshold(fallback float64) float64 {
	if g.ProjectThreshold != nil && *g.ProjectThreshold > 0 {
		return *g.ProjectThreshold
	}
	return fallback
}

// CheckUser raises an alert for every client/project whose hours in now's month
// reached the threshold and that has not been alerted this month yet.
func (s *ThresholdService) CheckUser(ctx context.Context, userID uint, now time.Time) ([]ThresholdAlert, error) {
	tx := s.db.WithContext(ctx)

	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		return nil, notFound(err, "User")
	}

	settings, err := NewSettingsService(s.db, s.defaultThreshold).get(tx, userID)
	if err != nil {
		return nil, err
	}

	start, end, month := utils.MonthWindow(now)

	var groups []hoursGroup
	err = tx.Model(&models.WorkHour{}).
		Select("work_hours.client_id, clients.name AS client_name, clients.email AS client_email, "+
			"work_hours.project_id, COALESCE(projects.name, '') AS project_name, "+
			"projects.alert_threshold AS project_threshold, SUM(work_hours.hours) AS total").
		Joins("JOIN clients ON clients.id = work_hours.client_id").
		Joins("LEFT JOIN projects ON projects.id = work_hours.project_id").
		Where("work_hours.user_id = ? AND work_hours.date >= ? AND work_hours.date < ?", userID, start, end).
		Group("work_hours.client_id, clients.name, clients.email, work_hours.project_id, projects.name, projects.alert_threshold").
		Order("work_hours.client_id ASC, work_hours.project_id ASC").
		Scan(&groups).Error
	if err != nil {
		return nil, err
	}

	alerts := []ThresholdAlert{}

	for _, group := range groups {
		threshold := group.threshold(settings.AlertThreshold)
		if threshold <= 0 || group.Total < threshold {
			continue
		}

		alert, err := s.raise(ctx, user, group, threshold, month, start, end)
		if err != nil {
			return alerts, err
		}
		if alert == nil {
			continue
		}

		s.deliver(ctx, user, *settings, group, alert)
		alerts = append(alerts, *alert)
	}

	return alerts, nil
}

// raise records the alert and its draft invoice. It returns nil when the
// alert was already sent this month.
func (s *ThresholdService) raise(ctx context.Context, user models.User, group hoursGroup, threshold float64, month string, start, end time.Time) (*ThresholdAlert, error) {
	tx := s.db.WithContext(ctx)

	sent, err := alertSent(tx, user.ID, group.ClientID, threshold, month)
	if err != nil || sent {
		return nil, err
	}

	alert := &ThresholdAlert{
		ClientID:    group.ClientID,
		ClientName:  group.ClientName,
		ProjectID:   group.ProjectID,
		ProjectName: group.ProjectName,
		Hours:       group.Total,
		Threshold:   threshold,
		Month:       month,
		Channels:    []string{},
	}

	err = tx.Transaction(func(tx *gorm.DB) error {
		unbilled := tx.Preload("Project").
			Where("user_id = ? AND client_id = ? AND date >= ? AND date < ?", user.ID, group.ClientID, start, end).
			Where("id NOT IN (?)", billedWorkHours(tx))
		if group.ProjectID != nil {
			unbilled = unbilled.Where("project_id = ?", *group.ProjectID)
		} else {
			unbilled = unbilled.Where("project_id IS NULL")
		}

		var hours []models.WorkHour
		if err := unbilled.Order("date ASC, id ASC").Find(&hours).Error; err != nil {
			return err
		}

		if len(hours) > 0 {
			client, err := ownedClient(tx, user.ID, group.ClientID)
			if err != nil {
				return err
			}

			invoice, err := writeInvoice(tx, invoiceDraft{
				userID: user.ID,
				client: *client,
				hours:  hours,
				status: models.InvoiceDraft,
				notes:  fmt.Sprintf("Generated automatically: %.2f of %.2f hours reached in %s", group.Total, threshold, month),
				issued: time.Now(),
			})
			if err != nil {
				return err
			}
			alert.InvoiceID = &invoice.ID
		}

		return tx.Create(&models.NotificationLog{
			UserID:    user.ID,
			ClientID:  group.ClientID,
			ProjectID: group.ProjectID,
			Type:      models.NotificationTypeHoursThreshold,
			Threshold: threshold,
			Month:     month,
			InvoiceID: alert.InvoiceID,
			Hours:     group.Total,
		}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent check may have logged the alert first; any other
		// unique violation is a real failure
		if sent, checkErr := alertSent(s.db.WithContext(ctx), user.ID, group.ClientID, threshold, month); checkErr == nil && sent {
			return nil, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("record threshold alert: %w", err)
	}

	return alert, nil
}

func alertSent(tx *gorm.DB, userID, clientID uint, threshold float64, month string) (bool, error) {
	var sent int64
	err := tx.Model(&models.NotificationLog{}).
		Where("user_id = ? AND client_id = ? AND type = ? AND threshold = ? AND month = ?",
			userID, clientID, models.NotificationTypeHoursThreshold, threshold, month).
		Count(&sent).Error
	return sent > 0, err
}

// deliver fans the alert out to the enabled channels. Failures are logged only.
func (s *ThresholdService) deliver(ctx context.Context, user models.User, settings models.Settings, group hoursGroup, alert *ThresholdAlert) {
	log := s.notifier.logger().With(
		zap.Uint("user_id", user.ID),
		zap.Uint("client_id", group.ClientID),
		zap.String("month", alert.Month),
	)

	subject := fmt.Sprintf("Hours threshold reached for %s", alertTarget(group))
	body := fmt.Sprintf("You logged %.2f hours for %s in %s, reaching your threshold of %.2f hours.",
		alert.Hours, alertTarget(group), alert.Month, alert.Threshold)
	if alert.InvoiceID != nil {
		body += " A draft invoice was created for the unbilled hours."
	}

	if settings.InAppNotifications {
		notifications := NewNotificationService(s.db, s.notifier)
		if _, err := notifications.Create(ctx, user.ID, models.NotificationTypeHoursThreshold, subject, body, alert); err != nil {
			log.Warn("failed to create in-app notification", zap.Error(err))
		} else {
			alert.Channels = append(alert.Channels, ChannelInApp)
		}
	}

	if settings.EmailNotifications {
		to := settings.NotificationEmail
		if to == "" {
			to = user.Email
		}
		err := s.notifier.Email(ctx, mail.Message{To: to, Subject: subject, Text: body})
		if err != nil {
			log.Warn("failed to send threshold email", zap.String("to", to), zap.Error(err))
		} else {
			alert.Channels = append(alert.Channels, ChannelEmail)
		}
	}

	if settings.SMSNotifications && settings.NotificationPhone != "" {
		if err := s.notifier.Text(ctx, settings.NotificationPhone, body); err != nil {
			log.Warn("failed to send threshold sms", zap.Error(err))
		} else {
			alert.Channels = append(alert.Channels, ChannelSMS)
		}
	}

	err := s.db.WithContext(ctx).Model(&models.NotificationLog{}).
		Where("user_id = ? AND client_id = ? AND type = ? AND threshold = ? AND month = ?",
			user.ID, group.ClientID, models.NotificationTypeHoursThreshold, alert.Threshold, alert.Month).
		Update("channels", strings.Join(alert.Channels, ",")).Error
	if err != nil {
		log.Warn("failed to record notification channels", zap.Error(err))
	}

	log.Info("hours threshold alert sent",
		zap.Float64("hours", alert.Hours),
		zap.Float64("threshold", alert.Threshold),
		zap.Strings("channels", alert.Channels),
	)
}

func alertTarget(group hoursGroup) string {
	if group.ProjectName != "" {
		return fmt.Sprintf("%s / %s", group.ClientName, group.ProjectName)
	}
	return group.ClientName
}

// CheckAll runs CheckUser for every user that has settings. A failing user
// does not stop the sweep.
func (s *ThresholdService) CheckAll(ctx context.Context, now time.Time) (int, error) {
	var userIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.Settings{}).Order("user_id").Pluck("user_id", &userIDs).Error; err != nil {
		return 0, err
	}

	raised := 0
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return raised, err
		}

		alerts, err := s.CheckUser(ctx, userID, now)
		if err != nil {
			s.notifier.logger().Error("threshold check failed", zap.Uint("user_id", userID), zap.Error(err))
		}
		raised += len(alerts)
	}

	return raised, nil
}
