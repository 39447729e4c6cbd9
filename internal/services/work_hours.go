package services

import (
	"context"
	"strings"
	"time"

	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/models"
	"github.com/itsdone-dev/itsdone/internal/utils"
	"gorm.io/gorm"
)

const maxHoursPerEntry = 24

type WorkHourService struct {
	db *gorm.DB
}

func NewWorkHourService(db *gorm.DB) *WorkHourService {
	return &WorkHourService{db: db}
}

type WorkHourInput struct {
	Date        string  `json:"date" binding:"required"`
	Hours       float64 `json:"hours" binding:"required"`
	ClientID    uint    `json:"client_id" binding:"required"`
	ProjectID   *uint   `json:"project_id"`
	Description string  `json:"description"`
}

type WorkHourFilter struct {
	From      *time.Time
	To        *time.Time
	ClientID  *uint
	ProjectID *uint
	Billed    *bool
}

// resolve validates the input against the user's clients and projects.
func (in WorkHourInput) resolve(tx *gorm.DB, userID uint, wh *models.WorkHour) error {
	date, err := utils.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return apperr.BadRequest("Invalid date, expected YYYY-MM-DD")
	}

	if in.Hours <= 0 || in.Hours > maxHoursPerEntry {
		return apperr.BadRequest("Hours must be greater than 0 and at most %d", maxHoursPerEntry)
	}

	client, err := ownedClient(tx, userID, in.ClientID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.BadRequest("Client not found")
		}
		return err
	}

	if in.ProjectID != nil {
		project, err := ownedProject(tx, userID, *in.ProjectID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return apperr.BadRequest("Project not found")
			}
			return err
		}
		if project.ClientID != client.ID {
			return apperr.BadRequest("Project does not belong to the selected client")
		}
	}

	wh.UserID = userID
	wh.ClientID = client.ID
	wh.ProjectID = in.ProjectID
	wh.Date = date
	wh.Hours = in.Hours
	wh.Description = strings.TrimSpace(in.Description)
	return nil
}

func (s *WorkHourService) Create(ctx context.Context, userID uint, in WorkHourInput) (*models.WorkHour, error) {
	tx := s.db.WithContext(ctx)

	var wh models.WorkHour
	if err := in.resolve(tx, userID, &wh); err != nil {
		return nil, err
	}

	if err := tx.Create(&wh).Error; err != nil {
		return nil, err
	}

	return s.Get(ctx, userID, wh.ID)
}

func (s *WorkHourService) List(ctx context.Context, userID uint, f WorkHourFilter) ([]models.WorkHour, error) {
	tx := s.db.WithContext(ctx)

	query := tx.Preload("Client").Preload("Project").Where("user_id = ?", userID)

	if f.From != nil {
		query = query.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		// inclusive end date
		query = query.Where("date < ?", f.To.AddDate(0, 0, 1))
	}
	if f.ClientID != nil {
		query = query.Where("client_id = ?", *f.ClientID)
	}
	if f.ProjectID != nil {
		query = query.Where("project_id = ?", *f.ProjectID)
	}
	if f.Billed != nil {
		if *f.Billed {
			query = query.Where("id IN (?)", billedWorkHours(tx))
		} else {
			query = query.Where("id NOT IN (?)", billedWorkHours(tx))
		}
	}

	hours := []models.WorkHour{}
	if err := query.Order("date DESC, id DESC").Find(&hours).Error; err != nil {
		return nil, err
	}

	if err := attachInvoiceIDs(tx, hours); err != nil {
		return nil, err
	}

	return hours, nil
}

func attachInvoiceIDs(tx *gorm.DB, hours []models.WorkHour) error {
	ids := make([]uint, len(hours))
	for i, wh := range hours {
		ids[i] = wh.ID
	}

	billed, err := activeInvoiceByWorkHour(tx, ids)
	if err != nil {
		return err
	}

	for i := range hours {
		if invoiceID, ok := billed[hours[i].ID]; ok {
			hours[i].InvoiceID = &invoiceID
		}
	}
	return nil
}

func (s *WorkHourService) Get(ctx context.Context, userID, id uint) (*models.WorkHour, error) {
	tx := s.db.WithContext(ctx)

	var wh models.WorkHour
	err := tx.Preload("Client").Preload("Project").
		Where("id = ? AND user_id = ?", id, userID).
		First(&wh).Error
	if err != nil {
		return nil, notFound(err, "Work hour")
	}

	hours := []models.WorkHour{wh}
	if err := attachInvoiceIDs(tx, hours); err != nil {
		return nil, err
	}

	return &hours[0], nil
}

// ensureUnbilled rejects changes to an entry that sits on an active invoice.
func ensureUnbilled(tx *gorm.DB, id uint) error {
	billed, err := activeInvoiceByWorkHour(tx, []uint{id})
	if err != nil {
		return err
	}
	if invoiceID, ok := billed[id]; ok {
		return apperr.Conflict("Work hour is attached to invoice %d", invoiceID)
	}
	return nil
}

// WorkHourPatch carries the fields of a partial update. Nil fields are left unchanged.
type WorkHourPatch struct {
	Date        *string  `json:"date"`
	Hours       *float64 `json:"hours"`
	ClientID    *uint    `json:"client_id"`
	ProjectID   *uint    `json:"project_id"`
	Description *string  `json:"description"`
}

func (p WorkHourPatch) merge(wh models.WorkHour) WorkHourInput {
	in := WorkHourInput{
		Date:        wh.Date.UTC().Format(utils.DateLayout),
		Hours:       wh.Hours,
		ClientID:    wh.ClientID,
		ProjectID:   wh.ProjectID,
		Description: wh.Description,
	}

	if p.Date != nil {
		in.Date = *p.Date
	}
	if p.Hours != nil {
		in.Hours = *p.Hours
	}
	if p.ClientID != nil {
		in.ClientID = *p.ClientID
	}
	if p.ProjectID != nil {
		in.ProjectID = p.ProjectID
	}
	if p.Description != nil {
		in.Description = *p.Description
	}

	return in
}

func (s *WorkHourService) Update(ctx context.Context, userID, id uint, p WorkHourPatch) (*models.WorkHour, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wh models.WorkHour
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&wh).Error; err != nil {
			return notFound(err, "Work hour")
		}

		if err := ensureUnbilled(tx, wh.ID); err != nil {
			return err
		}

		if err := p.merge(wh).resolve(tx, userID, &wh); err != nil {
			return err
		}

		return tx.Save(&wh).Error
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, userID, id)
}

func (s *WorkHourService) Delete(ctx context.Context, userID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wh models.WorkHour
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&wh).Error; err != nil {
			return notFound(err, "Work hour")
		}

		if err := ensureUnbilled(tx, wh.ID); err != nil {
			return err
		}

		// links to canceled invoices only
		if err := tx.Where("work_hour_id = ?", wh.ID).Delete(&models.InvoiceWorkHour{}).Error; err != nil {
			return err
		}

		return tx.Delete(&wh).Error
	})
}

type WorkHourSummary struct {
	ClientID    uint    `json:"client_id"`
	ClientName  string  `json:"client_name"`
	ProjectID   *uint   `json:"project_id"`
	ProjectName string  `json:"project_name,omitempty"`
	Hours       float64 `json:"hours"`
	Entries     int64   `json:"entries"`
}

// Summary totals the user's hours per client and project in [from, to].
func (s *WorkHourService) Summary(ctx context.Context, userID uint, from, to *time.Time) ([]WorkHourSummary, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, apperr.BadRequest("The end date must not be before the start date")
	}

	query := s.db.WithContext(ctx).
		Table("work_hours").
		Select("work_hours.client_id, clients.name AS client_name, work_hours.project_id, "+
			"COALESCE(projects.name, '') AS project_name, SUM(work_hours.hours) AS hours, COUNT(*) AS entries").
		Joins("JOIN clients ON clients.id = work_hours.client_id").
		Joins("LEFT JOIN projects ON projects.id = work_hours.project_id").
		Where("work_hours.user_id = ?", userID)

	if from != nil {
		query = query.Where("work_hours.date >= ?", *from)
	}
	if to != nil {
		query = query.Where("work_hours.date < ?", to.AddDate(0, 0, 1))
	}

	rows := []WorkHourSummary{}
	err := query.
		Group("work_hours.client_id, clients.name, work_hours.project_id, projects.name").
		Order("clients.name ASC, project_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}
