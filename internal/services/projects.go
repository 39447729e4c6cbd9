package services

import (
	"context"
	"strings"

	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/models"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type ProjectInput struct {
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description"`
	HourlyRate     *float64 `json:"hourly_rate"`
	AlertThreshold *float64 `json:"alert_threshold"`
	Active         *bool    `json:"active"`
}

func (in ProjectInput) apply(project *models.Project) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperr.BadRequest("Project name is required")
	}
	if in.HourlyRate != nil && *in.HourlyRate < 0 {
		return apperr.BadRequest("Hourly rate cannot be negative")
	}
	if in.AlertThreshold != nil && *in.AlertThreshold <= 0 {
		return apperr.BadRequest("Alert threshold must be greater than zero")
	}

	project.Name = name
	project.Description = in.Description
	project.HourlyRate = in.HourlyRate
	project.AlertThreshold = in.AlertThreshold
	if in.Active != nil {
		project.Active = *in.Active
	}
	return nil
}

func (s *ProjectService) Create(ctx context.Context, userID, clientID uint, in ProjectInput) (*models.Project, error) {
	tx := s.db.WithContext(ctx)

	client, err := ownedClient(tx, userID, clientID)
	if err != nil {
		return nil, err
	}

	project := models.Project{ClientID: client.ID, UserID: userID, Active: true}
	if err := in.apply(&project); err != nil {
		return nil, err
	}

	if err := tx.Create(&project).Error; err != nil {
		return nil, err
	}

	return &project, nil
}

// List returns the user's projects, optionally limited to one client.
func (s *ProjectService) List(ctx context.Context, userID uint, clientID *uint) ([]models.Project, error) {
	tx := s.db.WithContext(ctx)

	if clientID != nil {
		if _, err := ownedClient(tx, userID, *clientID); err != nil {
			return nil, err
		}
	}

	query := tx.Where("user_id = ?", userID)
	if clientID != nil {
		query = query.Where("client_id = ?", *clientID)
	}

	projects := []models.Project{}
	if err := query.Order("name ASC, id ASC").Find(&projects).Error; err != nil {
		return nil, err
	}

	return projects, nil
}

func ownedProject(tx *gorm.DB, userID, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := tx.Where("id = ? AND user_id = ?", projectID, userID).First(&project).Error; err != nil {
		return nil, notFound(err, "Project")
	}
	return &project, nil
}

func (s *ProjectService) Get(ctx context.Context, userID, projectID uint) (*models.Project, error) {
	return ownedProject(s.db.WithContext(ctx), userID, projectID)
}

func (s *ProjectService) Update(ctx context.Context, userID, projectID uint, in ProjectInput) (*models.Project, error) {
	tx := s.db.WithContext(ctx)

	project, err := ownedProject(tx, userID, projectID)
	if err != nil {
		return nil, err
	}

	if err := in.apply(project); err != nil {
		return nil, err
	}

	if err := tx.Save(project).Error; err != nil {
		return nil, err
	}

	return project, nil
}

// ProjectPatch carries the fields of a partial update. Nil fields are left unchanged.
type ProjectPatch struct {
	Name           *string  `json:"name"`
	Description    *string  `json:"description"`
	HourlyRate     *float64 `json:"hourly_rate"`
	AlertThreshold *float64 `json:"alert_threshold"`
	Active         *bool    `json:"active"`
}

func (p ProjectPatch) merge(project models.Project) ProjectInput {
	active := project.Active
	in := ProjectInput{
		Name:           project.Name,
		Description:    project.Description,
		HourlyRate:     project.HourlyRate,
		AlertThreshold: project.AlertThreshold,
		Active:         &active,
	}

	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.HourlyRate != nil {
		in.HourlyRate = p.HourlyRate
	}
	if p.AlertThreshold != nil {
		in.AlertThreshold = p.AlertThreshold
	}
	if p.Active != nil {
		in.Active = p.Active
	}

	return in
}

// Patch updates only the fields present in p.
func (s *ProjectService) Patch(ctx context.Context, userID, projectID uint, p ProjectPatch) (*models.Project, error) {
	tx := s.db.WithContext(ctx)

	project, err := ownedProject(tx, userID, projectID)
	if err != nil {
		return nil, err
	}

	if err := p.merge(*project).apply(project); err != nil {
		return nil, err
	}

	if err := tx.Save(project).Error; err != nil {
		return nil, err
	}

	return project, nil
}

// Delete removes the project. Its work hours stay with the client.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := ownedProject(tx, userID, projectID)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.WorkHour{}).Where("project_id = ?", project.ID).Update("project_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.NotificationLog{}).Where("project_id = ?", project.ID).Update("project_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(project).Error
	})
}
