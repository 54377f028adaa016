package main

import "testing"

func TestSegmentPreviewsSplit(t *testing.T) {
	env := setupCLITestEnv(t)

	prompt := "Task 1: Setup\nDo setup.\n\nTask 2: Build\nDo build."
	out, _, err := runCLI(t, env, prompt, "segment")
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	requireContains(t, out, "Strategy: numbered-tasks")
	requireContains(t, out, "Subtasks: 2")
	requireContains(t, out, "Setup")
	requireContains(t, out, "Build")
}

func TestSegmentReportsUnsplittablePrompt(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "just one short line", "segment")
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	requireContains(t, out, "Strategy: none")
	requireContains(t, out, "single task")
}
