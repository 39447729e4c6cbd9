package services

import (
	"context"
	"testing"

	"github.com/itsdone-dev/itsdone/internal/apperr"
	"github.com/itsdone-dev/itsdone/internal/models"
)

func TestProjectsBelongToOwnedClients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProjectService(f.db)

	owner := f.user(t)
	other := f.user(t)
	acme := f.client(t, owner.ID, "Acme", 50)
	globex := f.client(t, owner.ID, "Globex", 60)

	f.project(t, owner.ID, acme.ID, ProjectInput{Name: "Website"})
	f.project(t, owner.ID, acme.ID, ProjectInput{Name: "App"})
	f.project(t, owner.ID, globex.ID, ProjectInput{Name: "Audit"})

	_, err := svc.Create(ctx, other.ID, acme.ID, ProjectInput{Name: "Sneaky"})
	expectKind(t, err, apperr.KindNotFound)

	_, err = svc.Create(ctx, owner.ID, acme.ID, ProjectInput{Name: "  "})
	expectKind(t, err, apperr.KindBadRequest)

	_, err = svc.Create(ctx, owner.ID, acme.ID, ProjectInput{Name: "Bad", AlertThreshold: ptr(0.0)})
	expectKind(t, err, apperr.KindBadRequest)

	all, err := svc.List(ctx, owner.ID, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 projects, got %d", len(all))
	}

	forAcme, err := svc.List(ctx, owner.ID, &acme.ID)
	if err != nil {
		t.Fatalf("list acme: %v", err)
	}
	if len(forAcme) != 2 || forAcme[0].Name != "App" {
		t.Fatalf("unexpected acme projects %+v", forAcme)
	}

	_, err = svc.List(ctx, other.ID, &acme.ID)
	expectKind(t, err, apperr.KindNotFound)

	none, err := svc.List(ctx, other.ID, nil)
	if err != nil || len(none) != 0 {
		t.Fatalf("other user sees projects: %v %v", none, err)
	}
}

func TestUpdateProjectOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProjectService(f.db)

	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 50)
	project := f.project(t, user.ID, client.ID, ProjectInput{Name: "Website"})

	if got := project.Rate(*client); got != 50 {
		t.Fatalf("rate without override = %v, want client rate 50", got)
	}

	updated, err := svc.Update(ctx, user.ID, project.ID, ProjectInput{
		Name:           "Website v2",
		HourlyRate:     ptr(80.0),
		AlertThreshold: ptr(20.0),
		Active:         ptr(false),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Website v2" || updated.Active || updated.Rate(*client) != 80 {
		t.Fatalf("unexpected project %+v", updated)
	}

	_, err = svc.Update(ctx, user.ID, project.ID+99, ProjectInput{Name: "Ghost"})
	expectKind(t, err, apperr.KindNotFound)
}

func TestDeleteProjectKeepsWorkHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProjectService(f.db)

	user := f.user(t)
	client := f.client(t, user.ID, "Acme", 50)
	project := f.project(t, user.ID, client.ID, ProjectInput{Name: "Website"})
	wh := f.hours(t, user.ID, client.ID, &project.ID, "2026-03-02", 4)

	if err := svc.Delete(ctx, user.ID, project.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var kept models.WorkHour
	if err := f.db.First(&kept, wh.ID).Error; err != nil {
		t.Fatalf("work hour removed with project: %v", err)
	}
	if kept.ProjectID != nil || kept.ClientID != client.ID {
		t.Fatalf("work hour not detached: %+v", kept)
	}

	expectKind(t, svc.Delete(ctx, user.ID, project.ID), apperr.KindNotFound)
}
