package services

import (
	"context"
	"errors"
	"strings"

	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/auth"
	"github.com/itsdone-dev/itsdone/internal/models"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type AuthService struct {
	db               *gorm.DB
	defaultThreshold float64
}

func NewAuthService(db *gorm.DB, defaultThreshold float64) *AuthService {
	return &AuthService{db: db, defaultThreshold: defaultThreshold}
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileInput struct {
	Name            string `json:"name"`
	Email           string `json:"email" binding:"omitempty,email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"omitempty,min=8"`
}

// Register creates the account together with its default settings.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	if name == "" {
		return nil, apperr.BadRequest("Name is required")
	}
	if !validEmail(email) {
		return nil, apperr.BadRequest("Email is not a valid address")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.BadRequest("Password must be at least %d characters", minPasswordLength)
	}

	tx := s.db.WithContext(ctx)

	var existing models.User
	err := tx.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, apperr.Conflict("Email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}

	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("Email already exists")
			}
			return err
		}

		settings := DefaultSettings(user.ID, s.defaultThreshold)
		return tx.Create(&settings).Error
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(in.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	return &user, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFound(err, "User")
	}
	return &user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx)
	updates := make(map[string]interface{})

	if name := strings.TrimSpace(in.Name); name != "" {
		updates["name"] = name
	}

	if in.Email != "" {
		email := normalizeEmail(in.Email)
		if !validEmail(email) {
			return nil, apperr.BadRequest("Email is not a valid address")
		}

		if email != user.Email {
			var existing models.User
			err := tx.Where("email = ? AND id <> ?", email, user.ID).First(&existing).Error
			if err == nil {
				return nil, apperr.Conflict("Email already exists")
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			updates["email"] = email
		}
	}

	if in.NewPassword != "" {
		if in.CurrentPassword == "" {
			return nil, apperr.BadRequest("Current password is required to change password")
		}
		if !auth.CheckPassword(user.PasswordHash, in.CurrentPassword) {
			return nil, apperr.BadRequest("Current password is incorrect")
		}
		if len(in.NewPassword) < minPasswordLength {
			return nil, apperr.BadRequest("Password must be at least %d characters", minPasswordLength)
		}

		passwordHash, err := auth.HashPassword(in.NewPassword)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = passwordHash
	}

	if len(updates) == 0 {
		return nil, apperr.BadRequest("No valid fields to update")
	}

	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.GetUser(ctx, userID)
}

// DeleteAccount removes the user and everything they own after checking the password.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uint, password string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return apperr.BadRequest("Incorrect password")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoiceIDs := tx.Model(&models.Invoice{}).Select("id").Where("user_id = ?", userID)

		steps := []func() error{
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.InAppNotification{}).Error },
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.NotificationLog{}).Error },
			func() error {
				return tx.Where("invoice_id IN (?)", invoiceIDs).Delete(&models.InvoiceWorkHour{}).Error
			},
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.Invoice{}).Error },
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.WorkHour{}).Error },
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.Project{}).Error },
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.Client{}).Error },
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.Settings{}).Error },
			func() error { return tx.Delete(user).Error },
		}

		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
}
