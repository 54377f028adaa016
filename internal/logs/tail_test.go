package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"promptq/internal/logs"
)

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptq.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.LastLines(path, 2)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("unexpected offset %d", offset)
	}
}

func TestLastLinesMissingFile(t *testing.T) {
	lines, offset, err := logs.LastLines(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}
	if len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %#v at %d", lines, offset)
	}
}

func TestReadFromHandlesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptq.log")
	if err := os.WriteFile(path, []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.ReadFrom(path, 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("unexpected lines: %#v", lines)
	}

	// Simulate rotation: shorter file, stale offset.
	if err := os.WriteFile(path, []byte("new\n"), 0o644); err != nil {
		t.Fatalf("rewrite log: %v", err)
	}
	lines, _, err = logs.ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("ReadFrom after truncate: %v", err)
	}
	if len(lines) != 1 || lines[0] != "new" {
		t.Fatalf("expected restart from beginning, got %#v", lines)
	}
}

func TestFollowDeliversAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptq.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	_, offset, err := logs.LastLines(path, 1)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, func(line string) error {
			got <- line
			cancel()
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	select {
	case line := <-got:
		if line != "later" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not deliver the appended line")
	}
	if err := <-done; err != nil {
		t.Fatalf("follow returned error: %v", err)
	}
}
