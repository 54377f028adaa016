package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"promptq/internal/queue"
	"promptq/internal/schedule"
	"promptq/internal/services"
	"promptq/internal/testsupport"
)

const owner = "owner-test"

func TestValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		at      time.Time
		zone    string
		wantErr bool
	}{
		{"future utc", now.Add(time.Hour), "UTC", false},
		{"future named zone", now.Add(time.Hour), "America/New_York", false},
		{"past", now.Add(-time.Minute), "UTC", true},
		{"exactly now", now, "UTC", true},
		{"bogus zone", now.Add(time.Hour), "Mars/Olympus", true},
		{"empty zone", now.Add(time.Hour), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schedule.Validate(tt.at, tt.zone, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%v, %q) error = %v, wantErr %v", tt.at, tt.zone, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
		})
	}
}

func TestScheduleAndUnschedule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewSingle(t, store, owner, "deferred work")

	at := time.Now().Add(2 * time.Hour)
	if err := schedule.Schedule(ctx, store, owner, []string{item.ID}, at, "Europe/Berlin", true); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusScheduled {
		t.Fatalf("status = %s, want %s", updated.Status, queue.StatusScheduled)
	}
	if updated.ScheduledAt == nil || !updated.ScheduledAt.Equal(at.UTC()) {
		t.Fatalf("scheduledAt = %v, want %v", updated.ScheduledAt, at.UTC())
	}
	if updated.ScheduledTimeZone != "Europe/Berlin" || !updated.RetryOnFailure || updated.RetryCount != 0 {
		t.Fatalf("schedule metadata = %#v", updated)
	}

	if err := schedule.Unschedule(ctx, store, owner, []string{item.ID}); err != nil {
		t.Fatalf("Unschedule failed: %v", err)
	}
	updated, err = store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending || updated.ScheduledAt != nil || updated.ScheduledTimeZone != "" {
		t.Fatalf("unschedule left metadata: %#v", updated)
	}
}

func TestScheduleRejectsPast(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewSingle(t, store, owner, "work")
	err := schedule.Schedule(context.Background(), store, owner, []string{item.ID}, time.Now().Add(-time.Hour), "UTC", false)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestScheduleRejectsForeignItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewSingle(t, store, "other-owner", "theirs")
	err := schedule.Schedule(context.Background(), store, owner, []string{item.ID}, time.Now().Add(time.Hour), "UTC", false)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDueScopesToOwner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	past := time.Now().Add(-time.Minute).UTC()

	mine := testsupport.NewSingle(t, store, owner, "mine")
	mine.Status = queue.StatusScheduled
	mine.ScheduledAt = &past
	if err := store.Update(ctx, mine); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	theirs := testsupport.NewSingle(t, store, "other-owner", "theirs")
	theirs.Status = queue.StatusScheduled
	theirs.ScheduledAt = &past
	if err := store.Update(ctx, theirs); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	due, err := schedule.Due(ctx, store, owner, time.Now())
	if err != nil {
		t.Fatalf("Due failed: %v", err)
	}
	if len(due) != 1 || due[0].ID != mine.ID {
		t.Fatalf("unexpected due items: %#v", due)
	}
}

func TestBumpRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewSingle(t, store, owner, "flaky")
	if err := schedule.BumpRetry(ctx, store, item, errors.New("activation failed")); err != nil {
		t.Fatalf("BumpRetry failed: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.RetryCount != 1 || updated.LastError != "activation failed" {
		t.Fatalf("retry metadata = %#v", updated)
	}
}
