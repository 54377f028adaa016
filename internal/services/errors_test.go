package services_test

import (
	"errors"
	"testing"

	"promptq/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrTransient, "tasks", "submit", "request failed", cause)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "tasks", "submit", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", services.Wrap(services.ErrValidation, "tasks", "submit", "bad prompt", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "tasks", "submit", "bad key", nil), false},
		{"not found", services.Wrap(services.ErrNotFound, "tasks", "submit", "no source", nil), false},
		{"transient", services.Wrap(services.ErrTransient, "tasks", "submit", "http 503", nil), true},
		{"external", services.Wrap(services.ErrExternal, "tasks", "submit", "http 500", nil), true},
		{"plain", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
