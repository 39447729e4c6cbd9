package services

import (
	"context"
	"testing"

	"github.com/itsdone-dev/itsdone/internal/apperr"
)

func TestNotificationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	other := f.user(t)

	svc := NewNotificationService(f.db, f.notifier)

	first, err := svc.Create(ctx, user.ID, "INFO", "Hello", "first", map[string]int{"n": 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, user.ID, "INFO", "Hello", "second", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(f.pub.events) != 2 {
		t.Fatalf("expected 2 pushes, got %d", len(f.pub.events))
	}
	event, ok := f.pub.events[0].event.(NotificationEvent)
	if !ok || event.Type != "notification" || event.Notification.ID != first.ID {
		t.Fatalf("unexpected event %+v", f.pub.events[0].event)
	}

	count, _ := svc.UnreadCount(ctx, user.ID)
	if count != 2 {
		t.Fatalf("unread %d, want 2", count)
	}

	_, err = svc.MarkRead(ctx, other.ID, first.ID)
	expectKind(t, err, apperr.KindNotFound)

	read, err := svc.MarkRead(ctx, user.ID, first.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !read.Read || read.ReadAt == nil {
		t.Fatalf("notification not marked read")
	}

	unread, _ := svc.List(ctx, user.ID, true)
	if len(unread) != 1 {
		t.Fatalf("unread list %d, want 1", len(unread))
	}

	changed, err := svc.MarkAllRead(ctx, user.ID)
	if err != nil || changed != 1 {
		t.Fatalf("mark all read: %d %v", changed, err)
	}

	expectKind(t, svc.Delete(ctx, other.ID, first.ID), apperr.KindNotFound)
	if err := svc.Delete(ctx, user.ID, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	all, _ := svc.List(ctx, user.ID, false)
	if len(all) != 1 {
		t.Fatalf("expected 1 notification left, got %d", len(all))
	}
}
