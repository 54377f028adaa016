package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusPaused     Status = "paused"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusScheduled,
	StatusInProgress,
	StatusPaused,
	StatusDone,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ItemType distinguishes whole-prompt items from segmented ones.
type ItemType string

const (
	TypeSingle   ItemType = "single"
	TypeSubtasks ItemType = "subtasks"
)

// Subtask is one ordered unit of a segmented item. Position and Total record
// the unit's rank within the original split so resubmissions stay
// self-describing even after earlier units drain.
type Subtask struct {
	Title       string `json:"title,omitempty"`
	FullContent string `json:"fullContent"`
	Position    int    `json:"position"`
	Total       int    `json:"total"`
}

// Item represents a queue item persisted in SQLite.
type Item struct {
	ID                string
	OwnerID           string
	Type              ItemType
	Title             string
	Prompt            string
	Remaining         []Subtask
	SourceID          string
	Branch            string
	Status            Status
	ScheduledAt       *time.Time
	ScheduledTimeZone string
	RetryOnFailure    bool
	RetryCount        int
	LastError         string
	AutoOpen          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// UnitCount returns how many submission units the item still carries. A single
// item always counts as one unit.
func (i Item) UnitCount() int {
	if i.Type == TypeSubtasks {
		return len(i.Remaining)
	}
	return 1
}

// IsTerminal reports whether the item has finished its lifecycle.
func (i Item) IsTerminal() bool {
	return i.Status == StatusDone
}

// SetError marks the item as errored with the given message.
func (i *Item) SetError(message string) {
	i.Status = StatusError
	i.LastError = message
}

// ClearSchedule drops schedule metadata, returning the item to manual control.
func (i *Item) ClearSchedule() {
	i.ScheduledAt = nil
	i.ScheduledTimeZone = ""
	i.RetryOnFailure = false
	i.RetryCount = 0
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Scheduled  int
	InProgress int
	Paused     int
	Done       int
	Errored    int
}
