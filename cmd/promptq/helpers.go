package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"promptq/internal/queue"
)

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatSchedule(item *queue.Item) string {
	if item.ScheduledAt == nil {
		return "-"
	}
	at := *item.ScheduledAt
	if item.ScheduledTimeZone != "" {
		if loc, err := time.LoadLocation(item.ScheduledTimeZone); err == nil {
			at = at.In(loc)
		}
	}
	return at.Format("2006-01-02 15:04 MST")
}

func itemUnits(item *queue.Item) string {
	if item.Type == queue.TypeSingle {
		return "1"
	}
	total := 0
	if len(item.Remaining) > 0 {
		total = item.Remaining[0].Total
	}
	if total > 0 {
		return fmt.Sprintf("%d/%d", len(item.Remaining), total)
	}
	return strconv.Itoa(len(item.Remaining))
}
