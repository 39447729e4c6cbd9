package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/itsdone-dev/itsdone/db"
	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/mail"
	"github.com/itsdone-dev/itsdone/internal/models"
	"gorm.io/gorm"
)

const testThreshold = 40

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type sentText struct{ to, body string }

type fakeSMS struct {
	mu   sync.Mutex
	sent []sentText
}

func (f *fakeSMS) Send(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentText{to, body})
	return nil
}

type published struct {
	userID uint
	event  any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(userID uint, event any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{userID, event})
}

type fixture struct {
	db       *gorm.DB
	mailer   *fakeMailer
	sms      *fakeSMS
	pub      *fakePublisher
	notifier *Notifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		db:     db.OpenTest(t),
		mailer: &fakeMailer{},
		sms:    &fakeSMS{},
		pub:    &fakePublisher{},
	}
	f.notifier = &Notifier{Mail: f.mailer, SMS: f.sms, Realtime: f.pub}
	return f
}

var userSeq int

func (f *fixture) user(t *testing.T) *models.User {
	t.Helper()

	userSeq++
	user, err := NewAuthService(f.db, testThreshold).Register(context.Background(), RegisterInput{
		Name:     "Ada",
		Email:    fmt.Sprintf("ada%d@example.com", userSeq),
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func (f *fixture) client(t *testing.T, userID uint, name string, rate float64) *models.Client {
	t.Helper()

	client, err := NewClientService(f.db).Create(context.Background(), userID, ClientInput{Name: name, HourlyRate: rate})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func (f *fixture) project(t *testing.T, userID, clientID uint, in ProjectInput) *models.Project {
	t.Helper()

	project, err := NewProjectService(f.db).Create(context.Background(), userID, clientID, in)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func (f *fixture) hours(t *testing.T, userID, clientID uint, projectID *uint, date string, hours float64) *models.WorkHour {
	t.Helper()

	wh, err := NewWorkHourService(f.db).Create(context.Background(), userID, WorkHourInput{
		Date:      date,
		Hours:     hours,
		ClientID:  clientID,
		ProjectID: projectID,
	})
	if err != nil {
		t.Fatalf("create work hour: %v", err)
	}
	return wh
}

func expectKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected kind %v error, got nil", kind)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != kind {
		t.Fatalf("expected kind %v error, got %v", kind, err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
