package main

import (
	"context"
	"strings"
	"testing"

	"promptq/internal/queue"
	"promptq/internal/testsupport"
)

func TestListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item := testsupport.NewSubtasks(t, env.store, env.owner, 3)
	item.Title = "Migrate billing"
	if err := env.store.Update(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}

	out, _, err := runCLI(t, env, "", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Migrate billing")
	requireContains(t, out, "subtasks")
	requireContains(t, out, "pending")

	out, _, err = runCLI(t, env, "", "show", item.ID[:8])
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, item.ID)
	requireContains(t, out, "Remaining: 3")
	requireContains(t, out, "Part 2")
}

func TestListStatusFilter(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewSingle(t, env.store, env.owner, "pending prompt")

	out, _, err := runCLI(t, env, "", "list", "--status", "error")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	_, _, err = runCLI(t, env, "", "list", "--status", "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestShowUnknownItem(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "", "show", "deadbeef")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRemoveByShortID(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item := testsupport.NewSingle(t, env.store, env.owner, "remove me")

	out, _, err := runCLI(t, env, "", "remove", item.ID[:8])
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	requireContains(t, out, "Removed")

	got, err := env.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expected item removed")
	}
}

func TestRetryErroredItems(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item := testsupport.NewSingle(t, env.store, env.owner, "flaky prompt")
	item.SetError("boom")
	if err := env.store.Update(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}

	out, _, err := runCLI(t, env, "", "retry")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	requireContains(t, out, "Retried 1 errored items")

	got, err := env.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", got.Status)
	}
}

func TestClearVariants(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	testsupport.NewSingle(t, env.store, env.owner, "keep")
	errored := testsupport.NewSingle(t, env.store, env.owner, "broken")
	errored.SetError("boom")
	if err := env.store.Update(ctx, errored); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, _, err := runCLI(t, env, "", "clear", "--done", "--errored")
	if err == nil {
		t.Fatal("expected conflict error")
	}

	out, _, err := runCLI(t, env, "", "clear", "--errored")
	if err != nil {
		t.Fatalf("clear --errored: %v", err)
	}
	requireContains(t, out, "Cleared 1 errored items")

	out, _, err = runCLI(t, env, "", "clear")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 queue items")
}

func TestHealthSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	testsupport.NewSingle(t, env.store, env.owner, "one")
	paused := testsupport.NewSubtasks(t, env.store, env.owner, 2)
	paused.Status = queue.StatusPaused
	if err := env.store.Update(ctx, paused); err != nil {
		t.Fatalf("update: %v", err)
	}

	out, _, err := runCLI(t, env, "", "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	requireContains(t, out, "Total: 2")
	requireContains(t, out, "Pending: 1")
	requireContains(t, out, "Paused: 1")

	out, _, err = runCLI(t, env, "", "health", "--database")
	if err != nil {
		t.Fatalf("health --database: %v", err)
	}
	requireContains(t, out, "Integrity check: yes")
}
