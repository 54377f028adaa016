package testsupport

import (
	"context"
	"fmt"
	"testing"

	"promptq/internal/config"
	"promptq/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSingle creates a whole-prompt item for tests using the provided store.
func NewSingle(t testing.TB, store *queue.Store, ownerID, prompt string) *queue.Item {
	t.Helper()

	item, err := store.NewSingle(context.Background(), ownerID, "", prompt, "", "")
	if err != nil {
		t.Fatalf("store.NewSingle: %v", err)
	}
	return item
}

// NewSubtasks creates a segmented item with count sequenced units.
func NewSubtasks(t testing.TB, store *queue.Store, ownerID string, count int) *queue.Item {
	t.Helper()

	subtasks := make([]queue.Subtask, count)
	for i := range subtasks {
		subtasks[i] = queue.Subtask{
			Title:       fmt.Sprintf("Part %d", i+1),
			FullContent: fmt.Sprintf("unit %d content", i+1),
			Position:    i + 1,
			Total:       count,
		}
	}
	item, err := store.NewSubtasks(context.Background(), ownerID, "", "full prompt", subtasks, "", "")
	if err != nil {
		t.Fatalf("store.NewSubtasks: %v", err)
	}
	return item
}
