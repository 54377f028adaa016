package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSingle inserts a whole-prompt item in pending state.
func (s *Store) NewSingle(ctx context.Context, ownerID, title, prompt, sourceID, branch string) (*Item, error) {
	item := &Item{
		OwnerID:  ownerID,
		Type:     TypeSingle,
		Title:    title,
		Prompt:   prompt,
		SourceID: sourceID,
		Branch:   branch,
		Status:   StatusPending,
		AutoOpen: true,
	}
	if err := s.insert(ctx, item); err != nil {
		return nil, fmt.Errorf("insert single item: %w", err)
	}
	return item, nil
}

// NewSubtasks inserts a segmented item whose remaining units are submitted in
// order. Subtasks must already carry their sequence positions.
func (s *Store) NewSubtasks(ctx context.Context, ownerID, title, prompt string, subtasks []Subtask, sourceID, branch string) (*Item, error) {
	if len(subtasks) == 0 {
		return nil, errors.New("subtasks item requires at least one subtask")
	}
	item := &Item{
		OwnerID:   ownerID,
		Type:      TypeSubtasks,
		Title:     title,
		Prompt:    prompt,
		Remaining: subtasks,
		SourceID:  sourceID,
		Branch:    branch,
		Status:    StatusPending,
		AutoOpen:  true,
	}
	if err := s.insert(ctx, item); err != nil {
		return nil, fmt.Errorf("insert subtasks item: %w", err)
	}
	return item, nil
}

func (s *Store) insert(ctx context.Context, item *Item) error {
	now := time.Now().UTC()
	item.ID = uuid.NewString()
	item.CreatedAt = now
	item.UpdatedAt = now

	remaining, err := encodeRemaining(item.Remaining)
	if err != nil {
		return err
	}
	timestamp := now.Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            id, owner_id, item_type, title, prompt, remaining_json, source_id,
            branch, status, scheduled_at, scheduled_time_zone, retry_on_failure,
            retry_count, last_error, auto_open, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.OwnerID,
		item.Type,
		nullableString(item.Title),
		item.Prompt,
		remaining,
		nullableString(item.SourceID),
		nullableString(item.Branch),
		item.Status,
		nullableTime(item.ScheduledAt),
		nullableString(item.ScheduledTimeZone),
		boolToInt(item.RetryOnFailure),
		item.RetryCount,
		nullableString(item.LastError),
		boolToInt(item.AutoOpen),
		timestamp,
		timestamp,
	); err != nil {
		return err
	}
	s.cache.invalidate(item.OwnerID)
	return nil
}

// GetByID fetches a queue item by identifier. It returns nil without error
// when no item matches.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if item.Type == TypeSubtasks && len(item.Remaining) == 0 {
		return errors.New("subtasks item has no remaining units; remove it instead")
	}
	item.UpdatedAt = time.Now().UTC()

	remaining, err := encodeRemaining(item.Remaining)
	if err != nil {
		return err
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items
         SET title = ?, prompt = ?, remaining_json = ?, source_id = ?, branch = ?,
             status = ?, scheduled_at = ?, scheduled_time_zone = ?,
             retry_on_failure = ?, retry_count = ?, last_error = ?, auto_open = ?,
             updated_at = ?
         WHERE id = ?`,
		nullableString(item.Title),
		item.Prompt,
		remaining,
		nullableString(item.SourceID),
		nullableString(item.Branch),
		item.Status,
		nullableTime(item.ScheduledAt),
		nullableString(item.ScheduledTimeZone),
		boolToInt(item.RetryOnFailure),
		item.RetryCount,
		nullableString(item.LastError),
		boolToInt(item.AutoOpen),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	s.cache.invalidate(item.OwnerID)
	return nil
}

// List returns an owner's items newest first. Unfiltered lists are served from
// the per-owner cache when fresh.
func (s *Store) List(ctx context.Context, ownerID string, statuses ...Status) ([]*Item, error) {
	if len(statuses) == 0 {
		if items, ok := s.cache.get(ownerID); ok {
			return items, nil
		}
	}

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items WHERE owner_id = ?`
	orderClause := ` ORDER BY created_at DESC`
	args := []any{ownerID}

	query := baseQuery + orderClause
	if len(statuses) > 0 {
		placeholders := makePlaceholders(len(statuses))
		query = baseQuery + ` AND status IN (` + placeholders + `)` + orderClause
		for _, status := range statuses {
			args = append(args, status)
		}
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		s.cache.put(ownerID, items)
	}
	return items, nil
}

// Processable returns an owner's runnable items ordered oldest first, the
// order a run consumes them in.
func (s *Store) Processable(ctx context.Context, ownerID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+itemColumns+` FROM queue_items WHERE owner_id = ? AND status IN (?, ?) ORDER BY created_at`,
		ownerID, StatusPending, StatusPaused,
	)
	if err != nil {
		return nil, fmt.Errorf("list processable items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DueScheduled returns scheduled items across owners whose trigger time has
// passed, oldest trigger first.
func (s *Store) DueScheduled(ctx context.Context, now time.Time) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+itemColumns+` FROM queue_items
         WHERE status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?
         ORDER BY scheduled_at`,
		StatusScheduled, now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("list due scheduled items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if item != nil {
		s.cache.invalidate(item.OwnerID)
	}
	return affected > 0, nil
}

// Clear removes all of an owner's items.
func (s *Store) Clear(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	s.cache.invalidate(ownerID)
	return res.RowsAffected()
}

// ClearDone removes only completed items for an owner.
func (s *Store) ClearDone(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE owner_id = ? AND status = ?`, ownerID, StatusDone)
	if err != nil {
		return 0, fmt.Errorf("clear done: %w", err)
	}
	s.cache.invalidate(ownerID)
	return res.RowsAffected()
}

// ClearErrored removes only errored items for an owner.
func (s *Store) ClearErrored(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE owner_id = ? AND status = ?`, ownerID, StatusError)
	if err != nil {
		return 0, fmt.Errorf("clear errored: %w", err)
	}
	s.cache.invalidate(ownerID)
	return res.RowsAffected()
}

// ResetStranded returns an owner's in-progress items to pending. Only a
// crashed run leaves items in-progress with no run lock held, so callers
// invoke this once the lock is theirs.
func (s *Store) ResetStranded(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET status = ?, updated_at = ? WHERE owner_id = ? AND status = ?`,
		StatusPending, time.Now().UTC().Format(time.RFC3339Nano), ownerID, StatusInProgress,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stranded: %w", err)
	}
	s.cache.invalidate(ownerID)
	return res.RowsAffected()
}

// RetryErrored returns an owner's errored items to pending so the next run
// picks them up again. Error messages are preserved for inspection.
func (s *Store) RetryErrored(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET status = ?, updated_at = ? WHERE owner_id = ? AND status = ?`,
		StatusPending, time.Now().UTC().Format(time.RFC3339Nano), ownerID, StatusError,
	)
	if err != nil {
		return 0, fmt.Errorf("retry errored: %w", err)
	}
	s.cache.invalidate(ownerID)
	return res.RowsAffected()
}
