package simulated

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"resume-analyzer/internal/shared/storage/object"
)

var driveID = regexp.MustCompile(`^drive_\d+_[0-9a-z]{9}$`)

func TestSaveAssignsDriveStyleIDs(t *testing.T) {
	store := New(0)
	store.Now = func() time.Time { return time.UnixMilli(1700000000000).UTC() }
	ctx := context.Background()

	obj, err := store.Save(ctx, "local:1", "cv.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !driveID.MatchString(obj.Key) || !strings.HasPrefix(obj.Key, "drive_1700000000000_") {
		t.Fatalf("unexpected id %q", obj.Key)
	}

	u, err := store.URL(ctx, obj.Key)
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if u != "https://drive.google.com/file/d/"+obj.Key+"/view" {
		t.Fatalf("unexpected URL %q", u)
	}

	rc, err := store.Open(ctx, obj.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-1.4" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestDeleteAndList(t *testing.T) {
	store := New(0)
	ctx := context.Background()

	a, _ := store.Save(ctx, "local:1", "a.pdf", strings.NewReader("a"))
	_, _ = store.Save(ctx, "local:2", "b.pdf", strings.NewReader("b"))

	items, err := store.List(ctx, "local:1")
	if err != nil || len(items) != 1 || items[0].Name != "a.pdf" {
		t.Fatalf("unexpected listing %+v %v", items, err)
	}

	if err := store.Delete(ctx, a.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, a.Key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if u, _ := store.URL(ctx, a.Key); u != "" {
		t.Fatalf("expected no URL for deleted object, got %q", u)
	}
}

func TestDelayHonorsContext(t *testing.T) {
	store := New(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Save(ctx, "local:1", "a.pdf", strings.NewReader("a")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
