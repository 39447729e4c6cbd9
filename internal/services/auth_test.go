package services

import (
	"context"
	"testing"

	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/models"
)

func TestRegisterCreatesDefaultSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := NewAuthService(f.db, testThreshold).Register(ctx, RegisterInput{
		Name:     " Grace ",
		Email:    "Grace@Example.com",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if user.Email != "grace@example.com" || user.Name != "Grace" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.PasswordHash == "longenough" {
		t.Fatalf("password stored in clear text")
	}

	var settings models.Settings
	if err := f.db.Where("user_id = ?", user.ID).First(&settings).Error; err != nil {
		t.Fatalf("settings not created: %v", err)
	}
	if settings.AlertThreshold != testThreshold || !settings.EmailNotifications || !settings.InAppNotifications || settings.SMSNotifications {
		t.Fatalf("unexpected default settings %+v", settings)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.db, testThreshold)
	in := RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "longenough"}

	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("register: %v", err)
	}

	in.Email = "ADA@example.com"
	_, err := svc.Register(context.Background(), in)
	expectKind(t, err, apperr.KindConflict)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.db, testThreshold)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("logged in as %d, want %d", user.ID, registered.ID)
	}

	_, err = svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong-password"})
	expectKind(t, err, apperr.KindUnauthorized)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "longenough"})
	expectKind(t, err, apperr.KindUnauthorized)
}

func TestUpdateProfilePasswordChange(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.db, testThreshold)
	ctx := context.Background()
	user := f.user(t)

	_, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{CurrentPassword: "nope", NewPassword: "brand new pass"})
	expectKind(t, err, apperr.KindBadRequest)

	if _, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{CurrentPassword: "correct horse", NewPassword: "brand new pass"}); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	if _, err := svc.Login(ctx, LoginInput{Email: user.Email, Password: "brand new pass"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestDeleteAccountRemovesOwnedData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 100)
	wh := f.hours(t, user.ID, client.ID, nil, "2026-03-02", 4)

	if _, err := NewInvoiceService(f.db, nil).Create(ctx, user.ID, CreateInvoiceInput{WorkHourIDs: []uint{wh.ID}}); err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	svc := NewAuthService(f.db, testThreshold)

	expectKind(t, svc.DeleteAccount(ctx, user.ID, "wrong"), apperr.KindBadRequest)

	if err := svc.DeleteAccount(ctx, user.ID, "correct horse"); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	for _, model := range []any{&models.User{}, &models.Client{}, &models.WorkHour{}, &models.Invoice{}, &models.InvoiceWorkHour{}, &models.Settings{}} {
		var count int64
		f.db.Model(model).Count(&count)
		if count != 0 {
			t.Fatalf("%T rows left after account deletion: %d", model, count)
		}
	}
}
