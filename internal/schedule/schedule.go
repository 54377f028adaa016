// Package schedule manages deferred activation metadata on queue items.
// Items marked scheduled are left alone by normal runs; an external activator
// promotes them back to pending once their instant passes.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"promptq/internal/queue"
	"promptq/internal/services"
)

// Validate checks a proposed trigger time. The zone must be a loadable IANA
// identifier and the instant must be strictly in the future.
func Validate(at time.Time, zone string, now time.Time) error {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return services.Wrap(services.ErrValidation, "schedule", "validate", "time zone required", nil)
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		return services.Wrap(services.ErrValidation, "schedule", "validate", fmt.Sprintf("unknown time zone %q", zone), err)
	}
	if !at.In(location).After(now.In(location)) {
		return services.Wrap(services.ErrValidation, "schedule", "validate", "scheduled time must be in the future", nil)
	}
	return nil
}

// Schedule marks the owner's items for deferred activation. Each target moves
// to scheduled status with a fresh retry counter.
func Schedule(ctx context.Context, store *queue.Store, ownerID string, ids []string, at time.Time, zone string, retryOnFailure bool) error {
	if err := Validate(at, zone, time.Now()); err != nil {
		return err
	}
	for _, id := range ids {
		item, err := store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if item == nil || item.OwnerID != ownerID {
			return services.Wrap(services.ErrNotFound, "schedule", "schedule", fmt.Sprintf("item %s", id), nil)
		}
		if item.Status == queue.StatusInProgress {
			return services.Wrap(services.ErrValidation, "schedule", "schedule",
				fmt.Sprintf("item %s is in progress", id), nil)
		}
		trigger := at.UTC()
		item.Status = queue.StatusScheduled
		item.ScheduledAt = &trigger
		item.ScheduledTimeZone = zone
		item.RetryOnFailure = retryOnFailure
		item.RetryCount = 0
		if err := store.Update(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// Unschedule clears scheduling metadata and returns items to pending.
func Unschedule(ctx context.Context, store *queue.Store, ownerID string, ids []string) error {
	for _, id := range ids {
		item, err := store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if item == nil || item.OwnerID != ownerID {
			return services.Wrap(services.ErrNotFound, "schedule", "unschedule", fmt.Sprintf("item %s", id), nil)
		}
		if item.Status != queue.StatusScheduled {
			continue
		}
		item.Status = queue.StatusPending
		item.ClearSchedule()
		if err := store.Update(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// Due lists the owner's scheduled items whose trigger instant has passed.
func Due(ctx context.Context, store *queue.Store, ownerID string, now time.Time) ([]*queue.Item, error) {
	items, err := store.DueScheduled(ctx, now)
	if err != nil {
		return nil, err
	}
	scoped := make([]*queue.Item, 0, len(items))
	for _, item := range items {
		if item.OwnerID == ownerID {
			scoped = append(scoped, item)
		}
	}
	return scoped, nil
}

// BumpRetry records a failed activation attempt. The item stays scheduled so
// a later pass can try again; the caller decides when to give up.
func BumpRetry(ctx context.Context, store *queue.Store, item *queue.Item, cause error) error {
	item.RetryCount++
	if cause != nil {
		item.LastError = cause.Error()
	}
	return store.Update(ctx, item)
}
