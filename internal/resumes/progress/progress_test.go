package progress

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTrackerKeepsStatusMovingForward(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())

	steps := []struct {
		percent    int
		status     Status
		wantStatus Status
		wantPct    int
	}{
		{10, StatusUploading, StatusUploading, 10},
		{40, StatusUploading, StatusUploading, 40},
		{20, StatusUploading, StatusUploading, 40},
		{80, StatusAnalyzing, StatusAnalyzing, 80},
		{70, StatusUploading, StatusAnalyzing, 80},
		{100, StatusCompleted, StatusCompleted, 100},
		{80, StatusAnalyzing, StatusCompleted, 100},
	}
	for i, step := range steps {
		got, err := tracker.Record(ctx, "r1", step.percent, step.status, "")
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got.Status != step.wantStatus || got.Progress != step.wantPct {
			t.Fatalf("step %d: got %s/%d, want %s/%d", i, got.Status, got.Progress, step.wantStatus, step.wantPct)
		}
	}
}

func TestTrackerErrorReachableFromAnyState(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryStore())

	if _, err := tracker.Record(ctx, "r1", 100, StatusCompleted, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := tracker.Fail(ctx, "r1", "boom")
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if got.Status != StatusError || got.Progress != 0 || got.Error != "boom" {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	// Error is terminal until the run restarts.
	got, _ = tracker.Record(ctx, "r1", 80, StatusAnalyzing, "")
	if got.Status != StatusError {
		t.Fatalf("expected error to stick, got %+v", got)
	}
	if err := tracker.Restart(ctx, "r1"); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	got, _ = tracker.Record(ctx, "r1", 80, StatusAnalyzing, "")
	if got.Status != StatusAnalyzing {
		t.Fatalf("expected analyzing after restart, got %+v", got)
	}
}

func TestTrackerClampsPercent(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())
	got, _ := tracker.Record(context.Background(), "r1", 140, StatusUploading, "")
	if got.Progress != 100 {
		t.Fatalf("expected 100, got %d", got.Progress)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreExpiresAndSweeps(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.TTL = time.Hour
	store.Now = func() time.Time { return now }
	tracker := NewTracker(store)

	for _, id := range []string{"r1", "r2", "r3"} {
		if _, err := tracker.Record(ctx, id, 10, StatusUploading, ""); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}
	if store.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", store.Len())
	}

	now = now.Add(30 * time.Minute)
	if _, err := store.Get(ctx, "r1"); err != nil {
		t.Fatalf("expected r1 before expiry: %v", err)
	}

	now = now.Add(31 * time.Minute)
	if _, err := store.Get(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected r1 expired, got %v", err)
	}

	// An update after expiry starts a fresh snapshot and sweeps the rest.
	got, err := tracker.Record(ctx, "r4", 40, StatusUploading, "")
	if err != nil || got.Progress != 40 {
		t.Fatalf("Record r4: %+v %v", got, err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected expired entries swept, got %d left", store.Len())
	}
}

func TestMemoryStoreExpiredSnapshotDoesNotBlockNewRun(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.TTL = time.Hour
	store.Now = func() time.Time { return now }
	tracker := NewTracker(store)

	if _, err := tracker.Record(ctx, "r1", 100, StatusCompleted, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	now = now.Add(2 * time.Hour)
	got, err := tracker.Record(ctx, "r1", 10, StatusUploading, "")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got.Status != StatusUploading || got.Progress != 10 {
		t.Fatalf("expected fresh snapshot after expiry, got %+v", got)
	}
}

func TestRedisKey(t *testing.T) {
	if got := redisKey("abc"); got != "resume:progress:abc" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "http://not-redis"); err == nil {
		t.Fatalf("expected parse error")
	}
}
