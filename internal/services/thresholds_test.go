package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/itsdone-dev/itsdone/internal/models"
	"gorm.io/gorm"
)

var march = time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)

func TestCheckUserBelowThreshold(t *testing.T) {
	f := newFixture(t)
	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 100)
	f.hours(t, user.ID, client.ID, nil, "2026-03-02", 8)

	alerts, err := NewThresholdService(f.db, f.notifier, testThreshold).CheckUser(context.Background(), user.ID, march)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("unexpected alerts %+v", alerts)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("email sent below threshold")
	}
}

func TestCheckUserRaisesOncePerMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 50)

	for day := 2; day <= 6; day++ {
		f.hours(t, user.ID, client.ID, nil, time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), 8)
	}
	// outside the window
	f.hours(t, user.ID, client.ID, nil, "2026-02-27", 8)

	svc := NewThresholdService(f.db, f.notifier, testThreshold)

	alerts, err := svc.CheckUser(ctx, user.ID, march)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %+v", alerts)
	}

	alert := alerts[0]
	if alert.Hours != 40 || alert.Threshold != testThreshold || alert.Month != "2026-03" {
		t.Fatalf("unexpected alert %+v", alert)
	}
	if alert.InvoiceID == nil {
		t.Fatalf("draft invoice not created")
	}

	var invoice models.Invoice
	if err := f.db.Preload("Items").First(&invoice, *alert.InvoiceID).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	if invoice.Status != models.InvoiceDraft || len(invoice.Items) != 5 || invoice.Amount != 2000 {
		t.Fatalf("unexpected draft invoice %+v (%d items)", invoice, len(invoice.Items))
	}

	var logs []models.NotificationLog
	f.db.Find(&logs)
	if len(logs) != 1 || logs[0].Month != "2026-03" || logs[0].Channels != "in_app,email" {
		t.Fatalf("unexpected notification logs %+v", logs)
	}

	var notifications []models.InAppNotification
	f.db.Where("user_id = ?", user.ID).Find(&notifications)
	if len(notifications) != 1 || notifications[0].Type != models.NotificationTypeHoursThreshold {
		t.Fatalf("unexpected in-app notifications %+v", notifications)
	}

	if len(f.pub.events) != 1 || f.pub.events[0].userID != user.ID {
		t.Fatalf("expected one websocket push, got %+v", f.pub.events)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0].To != user.Email {
		t.Fatalf("expected one email to %s, got %+v", user.Email, f.mailer.sent)
	}
	if len(f.sms.sent) != 0 {
		t.Fatalf("sms sent while disabled")
	}

	f.hours(t, user.ID, client.ID, nil, "2026-03-09", 8)

	again, err := svc.CheckUser(ctx, user.ID, march)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("alert repeated within the month: %+v", again)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("email repeated within the month")
	}

	april := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	next, err := svc.CheckUser(ctx, user.ID, april)
	if err != nil {
		t.Fatalf("april check: %v", err)
	}
	if len(next) != 0 {
		t.Fatalf("april has no hours yet, got %+v", next)
	}
}

func TestCheckUserProjectThresholdOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 100)
	project := f.project(t, user.ID, client.ID, ProjectInput{Name: "Retainer", AlertThreshold: ptr(10.0)})

	f.hours(t, user.ID, client.ID, &project.ID, "2026-03-02", 6)
	f.hours(t, user.ID, client.ID, &project.ID, "2026-03-03", 5)
	f.hours(t, user.ID, client.ID, nil, "2026-03-03", 12)

	alerts, err := NewThresholdService(f.db, f.notifier, testThreshold).CheckUser(ctx, user.ID, march)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %+v", alerts)
	}
	if alerts[0].ProjectID == nil || *alerts[0].ProjectID != project.ID || alerts[0].Threshold != 10 || alerts[0].Hours != 11 {
		t.Fatalf("unexpected alert %+v", alerts[0])
	}

	var invoice models.Invoice
	if err := f.db.Preload("Items").First(&invoice, *alerts[0].InvoiceID).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	if len(invoice.Items) != 2 {
		t.Fatalf("draft invoice should bill only the project hours, has %d items", len(invoice.Items))
	}
}

func TestCheckUserSkipsDraftWhenEverythingBilled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 100)
	wh := f.hours(t, user.ID, client.ID, nil, "2026-03-02", 20)
	wh2 := f.hours(t, user.ID, client.ID, nil, "2026-03-03", 20)

	if _, err := NewInvoiceService(f.db, nil).Create(ctx, user.ID, CreateInvoiceInput{WorkHourIDs: []uint{wh.ID, wh2.ID}}); err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	alerts, err := NewThresholdService(f.db, f.notifier, testThreshold).CheckUser(ctx, user.ID, march)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(alerts) != 1 || alerts[0].InvoiceID != nil {
		t.Fatalf("expected alert without draft invoice, got %+v", alerts)
	}

	var count int64
	f.db.Model(&models.Invoice{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected no extra invoice, have %d", count)
	}
}

func TestCheckUserChannelsFollowSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 100)
	f.hours(t, user.ID, client.ID, nil, "2026-03-02", 24)

	settings := NewSettingsService(f.db, testThreshold)
	_, err := settings.Update(ctx, user.ID, UpdateSettingsInput{
		AlertThreshold:     ptr(20.0),
		NotificationEmail:  ptr("alerts@example.com"),
		NotificationPhone:  ptr("+15551234567"),
		InAppNotifications: ptr(false),
		SMSNotifications:   ptr(true),
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}

	alerts, err := NewThresholdService(f.db, f.notifier, testThreshold).CheckUser(ctx, user.ID, march)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %+v", alerts)
	}

	if len(f.mailer.sent) != 1 || f.mailer.sent[0].To != "alerts@example.com" {
		t.Fatalf("email not sent to notification address: %+v", f.mailer.sent)
	}
	if len(f.sms.sent) != 1 || f.sms.sent[0].to != "+15551234567" {
		t.Fatalf("sms not sent: %+v", f.sms.sent)
	}
	if len(f.pub.events) != 0 {
		t.Fatalf("push sent while in-app disabled")
	}
	if got := alerts[0].Channels; len(got) != 2 || got[0] != ChannelEmail || got[1] != ChannelSMS {
		t.Fatalf("channels %v", got)
	}
}

func TestCheckUserDeliveryFailureKeepsAlert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 100)
	f.hours(t, user.ID, client.ID, nil, "2026-03-02", 24)
	f.hours(t, user.ID, client.ID, nil, "2026-03-03", 24)

	f.mailer.err = errors.New("smtp down")

	svc := NewThresholdService(f.db, f.notifier, testThreshold)
	alerts, err := svc.CheckUser(ctx, user.ID, march)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(alerts) != 1 || alerts[0].InvoiceID == nil {
		t.Fatalf("alert should survive a failed email: %+v", alerts)
	}
	if got := alerts[0].Channels; len(got) != 1 || got[0] != ChannelInApp {
		t.Fatalf("channels %v", got)
	}

	again, _ := svc.CheckUser(ctx, user.ID, march)
	if len(again) != 0 {
		t.Fatalf("failed delivery must not cause a resend")
	}
}

func TestCheckAllSweepsEveryUser(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		user := f.user(t)
		client := f.client(t, user.ID, "Acme", 100)
		f.hours(t, user.ID, client.ID, nil, "2026-03-02", 24)
		f.hours(t, user.ID, client.ID, nil, "2026-03-03", 24)
	}

	raised, err := NewThresholdService(f.db, f.notifier, testThreshold).CheckAll(context.Background(), march)
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if raised != 3 {
		t.Fatalf("raised %d alerts, want 3", raised)
	}
}

func TestCheckUserUsesUTCMonthForLocalNow(t *testing.T) {
	f := newFixture(t)
	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 50)

	for day := 1; day <= 5; day++ {
		f.hours(t, user.ID, client.ID, nil, time.Date(2026, 11, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), 8)
	}

	// October 31st on a server five hours behind UTC
	now := time.Date(2026, 11, 1, 3, 0, 0, 0, time.UTC).In(time.FixedZone("UTC-5", -5*60*60))

	alerts, err := NewThresholdService(f.db, f.notifier, testThreshold).CheckUser(context.Background(), user.ID, now)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Month != "2026-11" {
		t.Fatalf("expected one November alert, got %+v", alerts)
	}
}

func TestCheckUserYieldsToConcurrentlyLoggedAlert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 50)

	for day := 2; day <= 6; day++ {
		f.hours(t, user.ID, client.ID, nil, time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), 8)
	}

	// another check logs the alert right after this one looked for it
	logged := false
	err := f.db.Callback().Query().After("gorm:query").Register("test:concurrent_alert", func(tx *gorm.DB) {
		if logged || tx.Statement.Table != "notification_logs" {
			return
		}
		logged = true

		err := tx.Session(&gorm.Session{NewDB: true}).Create(&models.NotificationLog{
			UserID:    user.ID,
			ClientID:  client.ID,
			Type:      models.NotificationTypeHoursThreshold,
			Threshold: testThreshold,
			Month:     "2026-03",
			Hours:     40,
		}).Error
		if err != nil {
			t.Errorf("log concurrent alert: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	alerts, err := NewThresholdService(f.db, f.notifier, testThreshold).CheckUser(ctx, user.ID, march)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !logged {
		t.Fatalf("concurrent alert was never logged")
	}
	if len(alerts) != 0 {
		t.Fatalf("alert raised twice: %+v", alerts)
	}

	var logs, invoices int64
	f.db.Model(&models.NotificationLog{}).Count(&logs)
	f.db.Model(&models.Invoice{}).Count(&invoices)
	if logs != 1 || invoices != 0 {
		t.Fatalf("want 1 log and no draft invoice, got %d logs and %d invoices", logs, invoices)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("email sent for an alert another check owns")
	}
}

func TestCheckUserReportsInvoiceNumberConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 50)

	for day := 2; day <= 6; day++ {
		f.hours(t, user.ID, client.ID, nil, time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), 8)
	}

	// an interactive invoice grabbed the same number
	err := f.db.Callback().Create().Before("gorm:create").Register("test:invoice_number_taken", func(tx *gorm.DB) {
		if tx.Statement.Table == "invoices" {
			tx.AddError(gorm.ErrDuplicatedKey)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	alerts, err := NewThresholdService(f.db, f.notifier, testThreshold).CheckUser(ctx, user.ID, march)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected the invoice conflict to be reported, got %v (alerts %+v)", err, alerts)
	}

	var logs int64
	f.db.Model(&models.NotificationLog{}).Count(&logs)
	if logs != 0 {
		t.Fatalf("alert logged without its invoice")
	}
}
