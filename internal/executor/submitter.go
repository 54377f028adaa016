package executor

import (
	"context"
	"strings"

	"promptq/internal/queue"
	"promptq/internal/services/tasks"
)

// Submitter sends one unit to the task service and returns the session URL.
type Submitter interface {
	Submit(ctx context.Context, item *queue.Item, unit queue.Subtask) (string, error)
}

// ServiceSubmitter adapts the tasks client to the run loop.
type ServiceSubmitter struct {
	Client        *tasks.Client
	DefaultBranch string
}

// Submit creates one session for the unit. Branch falls back to the
// configured default when the item carries none.
func (s *ServiceSubmitter) Submit(ctx context.Context, item *queue.Item, unit queue.Subtask) (string, error) {
	branch := strings.TrimSpace(item.Branch)
	if branch == "" {
		branch = s.DefaultBranch
	}
	title := strings.TrimSpace(unit.Title)
	if title == "" {
		title = item.Title
	}
	session, err := s.Client.Submit(ctx, tasks.SubmitRequest{
		Prompt:       unit.FullContent,
		Title:        title,
		SourceID:     item.SourceID,
		Branch:       branch,
		AutoCreatePR: true,
	})
	if err != nil {
		return "", err
	}
	return session.URL, nil
}
