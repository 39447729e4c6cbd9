package services

import (
	"context"
	"time"

	"github.com/itsdone-dev/itsdone/internal/models"
	"github.com/itsdone-dev/itsdone/internal/utils"
	"gorm.io/gorm"
)

type Dashboard struct {
	Month          string                 `json:"month"`
	MonthHours     float64                `json:"month_hours"`
	Threshold      float64                `json:"threshold"`
	Clients        []ClientProgress       `json:"clients"`
	UnbilledHours  float64                `json:"unbilled_hours"`
	UnbilledAmount float64                `json:"unbilled_amount"`
	Invoices       map[string]StatusTotal `json:"invoices"`
	UnreadCount    int64                  `json:"unread_notifications"`
}

// ClientProgress is a client's hours this month against the alert threshold.
type ClientProgress struct {
	ClientID   uint    `json:"client_id"`
	ClientName string  `json:"client_name"`
	Hours      float64 `json:"hours"`
	Threshold  float64 `json:"threshold"`
	Percentage float64 `json:"percentage"`
}

type DashboardService struct {
	db               *gorm.DB
	defaultThreshold float64
}

func NewDashboardService(db *gorm.DB, defaultThreshold float64) *DashboardService {
	return &DashboardService{db: db, defaultThreshold: defaultThreshold}
}

func (s *DashboardService) Get(ctx context.Context, userID uint, now time.Time) (*Dashboard, error) {
	tx := s.db.WithContext(ctx)

	settings, err := NewSettingsService(s.db, s.defaultThreshold).get(tx, userID)
	if err != nil {
		return nil, err
	}

	start, end, month := utils.MonthWindow(now)

	board := &Dashboard{
		Month:     month,
		Threshold: settings.AlertThreshold,
		Clients:   []ClientProgress{},
		Invoices:  emptyStatusTotals(),
	}

	err = tx.Model(&models.WorkHour{}).
		Select("work_hours.client_id, clients.name AS client_name, SUM(work_hours.hours) AS hours").
		Joins("JOIN clients ON clients.id = work_hours.client_id").
		Where("work_hours.user_id = ? AND work_hours.date >= ? AND work_hours.date < ?", userID, start, end).
		Group("work_hours.client_id, clients.name").
		Order("SUM(work_hours.hours) DESC").
		Scan(&board.Clients).Error
	if err != nil {
		return nil, err
	}

	for i := range board.Clients {
		c := &board.Clients[i]
		c.Threshold = settings.AlertThreshold
		if c.Threshold > 0 {
			c.Percentage = utils.RoundMoney(c.Hours / c.Threshold * 100)
		}
		board.MonthHours += c.Hours
	}

	var unbilled []models.WorkHour
	err = tx.Preload("Client").Preload("Project").
		Where("user_id = ? AND id NOT IN (?)", userID, billedWorkHours(tx)).
		Find(&unbilled).Error
	if err != nil {
		return nil, err
	}
	for _, wh := range unbilled {
		board.UnbilledHours += wh.Hours
		if wh.Client != nil {
			board.UnbilledAmount += wh.Amount(*wh.Client)
		}
	}
	board.UnbilledAmount = utils.RoundMoney(board.UnbilledAmount)

	totals, err := invoiceTotals(tx.Where("user_id = ?", userID))
	if err != nil {
		return nil, err
	}
	for status, total := range totals {
		board.Invoices[status] = total
	}

	board.UnreadCount, err = NewNotificationService(s.db, nil).UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return board, nil
}
