package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"promptq/internal/config"
	"promptq/internal/services"
)

const (
	defaultBaseURL     = "https://jules.googleapis.com/v1alpha"
	defaultHTTPTimeout = 60 * time.Second

	apiKeyHeader = "X-Goog-Api-Key"
)

// Client wraps the task service REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewClient constructs a task service client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// NewFromConfig builds a client from the service section of the config.
func NewFromConfig(cfg *config.Config) *Client {
	if cfg == nil {
		return NewClient("")
	}
	timeout := time.Duration(cfg.Service.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return NewClient(
		cfg.Service.APIKey,
		WithBaseURL(cfg.Service.BaseURL),
		WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}

// Session is the handle returned for an accepted submission.
type Session struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Source is a repository connected to the service.
type Source struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	GitHub *struct {
		Owner string `json:"owner"`
		Repo  string `json:"repo"`
	} `json:"githubRepo"`
}

// SubmitRequest carries everything needed to start one session.
type SubmitRequest struct {
	Prompt              string
	Title               string
	SourceID            string
	Branch              string
	AutoCreatePR        bool
	RequirePlanApproval bool
}

type sessionSource struct {
	ID     string `json:"id"`
	Branch string `json:"branch,omitempty"`
}

type createSessionBody struct {
	Prompt              string        `json:"prompt"`
	Title               string        `json:"title,omitempty"`
	Source              sessionSource `json:"source"`
	AutomationMode      string        `json:"automationMode,omitempty"`
	RequirePlanApproval bool          `json:"requirePlanApproval,omitempty"`
}

// Submit creates a session for one submission unit. The call returns once the
// service accepts the prompt; session progress is not tracked here.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*Session, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, services.Wrap(services.ErrValidation, "tasks", "submit", "prompt required", nil)
	}
	if strings.TrimSpace(req.SourceID) == "" {
		return nil, services.Wrap(services.ErrValidation, "tasks", "submit", "source required", nil)
	}
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tasks", "submit", "api key required", nil)
	}

	body := createSessionBody{
		Prompt: req.Prompt,
		Title:  strings.TrimSpace(req.Title),
		Source: sessionSource{
			ID:     req.SourceID,
			Branch: req.Branch,
		},
		RequirePlanApproval: req.RequirePlanApproval,
	}
	if req.AutoCreatePR {
		body.AutomationMode = "AUTO_CREATE_PR"
	}

	var session Session
	if err := c.doJSON(ctx, http.MethodPost, "/sessions", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession fetches a previously created session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, services.Wrap(services.ErrValidation, "tasks", "get session", "session id required", nil)
	}
	var session Session
	if err := c.doJSON(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSources returns the repositories connected to the service account.
func (c *Client) ListSources(ctx context.Context) ([]Source, error) {
	var payload struct {
		Sources []Source `json:"sources"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/sources", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Sources, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody, responseBody any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "tasks", "build url", path, err)
	}

	var reader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return services.Wrap(services.ErrValidation, "tasks", "encode request", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tasks", "build request", path, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, "tasks", "request", path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tasks", "read response", path, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		return services.Wrap(classifyStatus(resp.StatusCode), "tasks", method+" "+path, detail, nil)
	}
	if responseBody == nil {
		return nil
	}
	if err := json.Unmarshal(payload, responseBody); err != nil {
		return services.Wrap(services.ErrExternal, "tasks", "decode response", path, err)
	}
	return nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusBadRequest:
		return services.ErrValidation
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return services.ErrConfiguration
	case status == http.StatusNotFound:
		return services.ErrNotFound
	case status == http.StatusRequestTimeout:
		return services.ErrTimeout
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return services.ErrTransient
	default:
		return services.ErrExternal
	}
}
