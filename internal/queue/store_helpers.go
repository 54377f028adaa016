package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const itemColumns = "id, owner_id, item_type, title, prompt, remaining_json, source_id, branch, status, scheduled_at, scheduled_time_zone, retry_on_failure, retry_count, last_error, auto_open, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           string
		ownerID      string
		itemType     string
		title        sql.NullString
		prompt       string
		remainingRaw sql.NullString
		sourceID     sql.NullString
		branch       sql.NullString
		statusStr    string
		scheduledRaw sql.NullString
		timeZone     sql.NullString
		retryOnFail  sql.NullInt64
		retryCount   sql.NullInt64
		lastError    sql.NullString
		autoOpen     sql.NullInt64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&ownerID,
		&itemType,
		&title,
		&prompt,
		&remainingRaw,
		&sourceID,
		&branch,
		&statusStr,
		&scheduledRaw,
		&timeZone,
		&retryOnFail,
		&retryCount,
		&lastError,
		&autoOpen,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:                id,
		OwnerID:           ownerID,
		Type:              ItemType(itemType),
		Title:             title.String,
		Prompt:            prompt,
		SourceID:          sourceID.String,
		Branch:            branch.String,
		Status:            Status(statusStr),
		ScheduledTimeZone: timeZone.String,
		LastError:         lastError.String,
	}
	if retryOnFail.Valid {
		item.RetryOnFailure = retryOnFail.Int64 != 0
	}
	if retryCount.Valid {
		item.RetryCount = int(retryCount.Int64)
	}
	if autoOpen.Valid {
		item.AutoOpen = autoOpen.Int64 != 0
	}

	if remainingRaw.Valid && remainingRaw.String != "" {
		if err := json.Unmarshal([]byte(remainingRaw.String), &item.Remaining); err != nil {
			return nil, fmt.Errorf("decode remaining subtasks for item %s: %w", id, err)
		}
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if scheduledRaw.Valid {
		if scheduled, err := parseTimeString(scheduledRaw.String); err == nil {
			item.ScheduledAt = &scheduled
		}
	}
	return item, nil
}

func encodeRemaining(subtasks []Subtask) (any, error) {
	if len(subtasks) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(subtasks)
	if err != nil {
		return nil, fmt.Errorf("marshal remaining subtasks: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
