package main

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"promptq/internal/queue"
)

// manyTaskPrompt builds a prompt whose split exceeds the subtask-count
// warning threshold.
func manyTaskPrompt(count int) string {
	var b strings.Builder
	for i := 1; i <= count; i++ {
		fmt.Fprintf(&b, "Task %d: Step %d\nDo step %d of the migration.\n\n", i, i, i)
	}
	return b.String()
}

func TestAddSingleQueuesItem(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "", "add", "Fix the login bug", "--source", "src-1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Queued")

	items, err := env.store.List(context.Background(), env.owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Type != queue.TypeSingle {
		t.Fatalf("expected single item, got %s", item.Type)
	}
	if item.Title != "Fix the login bug" {
		t.Fatalf("unexpected title %q", item.Title)
	}
	if item.SourceID != "src-1" {
		t.Fatalf("unexpected source %q", item.SourceID)
	}
	if item.Branch != env.cfg.Service.DefaultBranch {
		t.Fatalf("expected default branch, got %q", item.Branch)
	}
	if !item.AutoOpen {
		t.Fatal("expected auto-open to default on")
	}
}

func TestAddReadsPromptFromStdin(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "Review the deployment scripts\n", "add"); err != nil {
		t.Fatalf("add: %v", err)
	}

	items, err := env.store.List(context.Background(), env.owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Review the deployment scripts" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestAddSplitCreatesSubtasks(t *testing.T) {
	env := setupCLITestEnv(t)

	prompt := "Task 1: Setup\nDo setup.\n\nTask 2: Build\nDo build."
	out, _, err := runCLI(t, env, prompt, "add", "--split", "--source", "src-1")
	if err != nil {
		t.Fatalf("add --split: %v", err)
	}
	requireContains(t, out, "2 subtasks")
	requireContains(t, out, "numbered-tasks")

	items, err := env.store.List(context.Background(), env.owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Type != queue.TypeSubtasks {
		t.Fatalf("expected subtasks item, got %s", item.Type)
	}
	if len(item.Remaining) != 2 {
		t.Fatalf("expected 2 units, got %d", len(item.Remaining))
	}
	first := item.Remaining[0]
	if first.Position != 1 || first.Total != 2 {
		t.Fatalf("unexpected sequence %d/%d", first.Position, first.Total)
	}
	if !strings.Contains(first.FullContent, "**Task:** Setup") {
		t.Fatalf("expected preamble in %q", first.FullContent)
	}
}

func TestAddSplitRejectsUnsplittablePrompt(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "", "add", "just one short line", "--split")
	if err == nil || !strings.Contains(err.Error(), "--split") {
		t.Fatalf("expected split error, got %v", err)
	}
}

func TestAddSplitWarningsRequireConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)
	prompt := manyTaskPrompt(25)

	// Declined confirmation leaves the queue untouched.
	_, stderr, err := runCLI(t, env, "n\n", "add", prompt, "--split")
	if err == nil || !strings.Contains(err.Error(), "aborted") {
		t.Fatalf("expected abort, got %v", err)
	}
	requireContains(t, stderr, "warning: many subtasks")
	requireContains(t, stderr, "Queue anyway? [y/N]")

	items, err := env.store.List(context.Background(), env.owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty queue after decline, got %d items", len(items))
	}

	// An explicit yes queues the item.
	if _, _, err := runCLI(t, env, "y\n", "add", prompt, "--split"); err != nil {
		t.Fatalf("add after confirmation: %v", err)
	}
	items, err = env.store.List(context.Background(), env.owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Type != queue.TypeSubtasks {
		t.Fatalf("expected 1 subtasks item, got %+v", items)
	}
}

func TestAddSplitYesFlagSkipsConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)

	_, stderr, err := runCLI(t, env, "", "add", manyTaskPrompt(25), "--split", "--yes")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, stderr, "warning: many subtasks")
	if strings.Contains(stderr, "Queue anyway?") {
		t.Fatalf("unexpected confirmation prompt: %q", stderr)
	}

	items, err := env.store.List(context.Background(), env.owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestAddNoAutoOpen(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "", "add", "Fix the login bug", "--no-auto-open"); err != nil {
		t.Fatalf("add: %v", err)
	}
	items, err := env.store.List(context.Background(), env.owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].AutoOpen {
		t.Fatalf("expected auto-open disabled, got %+v", items)
	}
}

func TestAddEmptyPromptFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "   \n", "add")
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty prompt error, got %v", err)
	}
}
