// Package auth resolves the owner identity that scopes all queue operations.
package auth

import (
	"context"
	"errors"
	"strings"

	"promptq/internal/config"
	"promptq/internal/services"
)

// ErrNotAuthenticated is returned when no owner identity is configured.
var ErrNotAuthenticated = errors.New("not authenticated: set auth.owner_id or PROMPTQ_OWNER_ID")

// Provider yields the owner identifier for the current invocation.
type Provider interface {
	CurrentOwner(ctx context.Context) (string, error)
}

// ConfigProvider reads the owner identity from configuration. The config
// layer already folds in the environment fallback.
type ConfigProvider struct {
	cfg *config.Config
}

// NewConfigProvider builds a provider backed by the loaded config.
func NewConfigProvider(cfg *config.Config) *ConfigProvider {
	return &ConfigProvider{cfg: cfg}
}

// CurrentOwner returns the configured owner identifier.
func (p *ConfigProvider) CurrentOwner(ctx context.Context) (string, error) {
	if p == nil || p.cfg == nil {
		return "", services.Wrap(services.ErrConfiguration, "auth", "current owner", "", ErrNotAuthenticated)
	}
	owner := strings.TrimSpace(p.cfg.Auth.OwnerID)
	if owner == "" {
		return "", services.Wrap(services.ErrConfiguration, "auth", "current owner", "", ErrNotAuthenticated)
	}
	return owner, nil
}

// StaticProvider returns a fixed owner, for tests and scripted use.
type StaticProvider string

// CurrentOwner returns the fixed owner value.
func (p StaticProvider) CurrentOwner(ctx context.Context) (string, error) {
	if strings.TrimSpace(string(p)) == "" {
		return "", ErrNotAuthenticated
	}
	return string(p), nil
}
