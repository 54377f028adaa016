package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"promptq/internal/config"
)

const userAgent = "promptq/0.1.0"

// Service is the notification surface used by the run loop.
type Service interface {
	NotifyRunCompleted(ctx context.Context, succeeded, skipped, total int) error
	NotifyRunPaused(ctx context.Context, succeeded, total int) error
	NotifyRunCancelled(ctx context.Context, cause string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, succeeded, skipped, total int) error {
	data := payload{
		title:   "promptq - Run Complete",
		message: fmt.Sprintf("Submitted %d/%d tasks (%d skipped)", succeeded, total, skipped),
		tags:    []string{"promptq", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunPaused(ctx context.Context, succeeded, total int) error {
	data := payload{
		title:   "promptq - Run Paused",
		message: fmt.Sprintf("Paused after %d/%d tasks; resume with promptq run", succeeded, total),
		tags:    []string{"promptq", "run", "paused"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCancelled(ctx context.Context, cause string) error {
	message := "Run cancelled"
	if cause = strings.TrimSpace(cause); cause != "" {
		message = "Run cancelled: " + cause
	}
	data := payload{
		title:    "promptq - Run Cancelled",
		message:  message,
		tags:     []string{"promptq", "run", "cancelled"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "promptq - Test",
		message:  "Notification system test",
		tags:     []string{"promptq", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, int, int, int) error { return nil }
func (noopService) NotifyRunPaused(context.Context, int, int) error         { return nil }
func (noopService) NotifyRunCancelled(context.Context, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
