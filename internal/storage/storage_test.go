package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

type failingStore struct{ calls int }

func (f *failingStore) Put(context.Context, string, []byte, string) (Object, error) {
	f.calls++
	return Object{}, errors.New("bucket unreachable")
}

func (f *failingStore) Delete(context.Context, string) error {
	return errors.New("bucket unreachable")
}

func TestLocalStorePutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store := &LocalStore{Dir: dir, BaseURL: "http://localhost:3000/uploads/"}

	obj, err := store.Put(context.Background(), "3/invoice.pdf", []byte("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	if obj.URL != "http://localhost:3000/uploads/3/invoice.pdf" {
		t.Fatalf("unexpected url %q", obj.URL)
	}
	if obj.Storage != BackendLocal || obj.Size != 8 {
		t.Fatalf("unexpected object %+v", obj)
	}

	data, err := os.ReadFile(filepath.Join(dir, "3", "invoice.pdf"))
	if err != nil || string(data) != "%PDF-1.4" {
		t.Fatalf("file not written: %q (%v)", data, err)
	}

	if err := store.Delete(context.Background(), "3/invoice.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(context.Background(), "3/invoice.pdf"); err != nil {
		t.Fatalf("deleting a missing file should succeed: %v", err)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := &LocalStore{Dir: t.TempDir(), BaseURL: "/uploads"}

	if _, err := store.Put(context.Background(), "../../etc/passwd", []byte("x"), "text/plain"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}

func TestFallbackStoreUsesLocalWhenS3Fails(t *testing.T) {
	primary := &failingStore{}
	store := &FallbackStore{
		Primary:   primary,
		Secondary: &LocalStore{Dir: t.TempDir(), BaseURL: "/uploads"},
		Log:       zap.NewNop(),
	}

	obj, err := store.Put(context.Background(), "1/a.png", []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	if primary.calls != 1 {
		t.Fatalf("primary should be tried once, got %d", primary.calls)
	}
	if obj.Storage != BackendLocal {
		t.Fatalf("expected local fallback, got %q", obj.Storage)
	}
}

func TestFallbackStoreWithoutBackends(t *testing.T) {
	store := &FallbackStore{Log: zap.NewNop()}

	if _, err := store.Put(context.Background(), "k", nil, ""); err == nil {
		t.Fatalf("expected an error without backends")
	}
}
