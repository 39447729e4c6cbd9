package services

import (
	"context"
	"testing"

	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/models"
)

func TestSettingsCreatedOnFirstAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := models.User{Name: "Legacy", Email: "legacy@example.com", PasswordHash: "x"}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	svc := NewSettingsService(f.db, 25)

	first, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first.AlertThreshold != 25 || first.DefaultDueDays != 30 || first.Currency != "USD" {
		t.Fatalf("unexpected defaults %+v", first)
	}

	second, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("settings row duplicated")
	}
}

func TestUpdateSettingsValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	svc := NewSettingsService(f.db, testThreshold)

	cases := map[string]UpdateSettingsInput{
		"zero threshold":    {AlertThreshold: ptr(0.0)},
		"bad email":         {NotificationEmail: ptr("nope")},
		"bad phone":         {NotificationPhone: ptr("5551234")},
		"sms without phone": {SMSNotifications: ptr(true)},
		"due days":          {DefaultDueDays: ptr(0)},
		"currency":          {Currency: ptr("dollars")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Update(ctx, user.ID, in)
			expectKind(t, err, apperr.KindBadRequest)
		})
	}

	updated, err := svc.Update(ctx, user.ID, UpdateSettingsInput{
		AlertThreshold:     ptr(32.5),
		EmailNotifications: ptr(false),
		DefaultDueDays:     ptr(14),
		Currency:           ptr("gbp"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	reloaded, _ := svc.Get(ctx, user.ID)
	if reloaded.AlertThreshold != 32.5 || reloaded.EmailNotifications || reloaded.DefaultDueDays != 14 || reloaded.Currency != "GBP" {
		t.Fatalf("settings not persisted: %+v", reloaded)
	}
	if updated.ID != reloaded.ID {
		t.Fatalf("update created a new row")
	}
}
