package executor_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"promptq/internal/config"
	"promptq/internal/executor"
	"promptq/internal/logging"
	"promptq/internal/queue"
	"promptq/internal/testsupport"
)

const owner = "owner-test"

type fakeSubmitter struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]int
	onSubmit func(content string)
}

func (f *fakeSubmitter) Submit(ctx context.Context, item *queue.Item, unit queue.Subtask) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, unit.FullContent)
	if f.failures[unit.FullContent] > 0 {
		f.failures[unit.FullContent]--
		return "", fmt.Errorf("submit rejected: %s", unit.FullContent)
	}
	if f.onSubmit != nil {
		f.onSubmit(unit.FullContent)
	}
	return "https://tasks.test/sessions/" + unit.FullContent, nil
}

type scriptResolver struct {
	resolutions []executor.Resolution
	failures    []executor.Failure
}

func (r *scriptResolver) Resolve(ctx context.Context, failure executor.Failure) (executor.Resolution, error) {
	r.failures = append(r.failures, failure)
	if len(r.resolutions) == 0 {
		return executor.Resolution{Action: executor.ActionCancel}, nil
	}
	next := r.resolutions[0]
	r.resolutions = r.resolutions[1:]
	return next, nil
}

func newTestRunner(t *testing.T, submitter executor.Submitter, resolver executor.Resolver) (*executor.Runner, *queue.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Executor.PacingDelayMS = 0
	cfg.Executor.RetryDelayMS = 0
	store := testsupport.MustOpenStore(t, cfg)
	runner := executor.NewRunner(cfg, store, submitter, resolver, logging.NewNop())
	return runner, store, cfg
}

func TestRunDrainsQueueInOrder(t *testing.T) {
	sub := &fakeSubmitter{}
	runner, store, _ := newTestRunner(t, sub, &scriptResolver{})

	ctx := context.Background()
	batch := testsupport.NewSubtasks(t, store, owner, 3)
	time.Sleep(5 * time.Millisecond)
	single := testsupport.NewSingle(t, store, owner, "whole prompt")

	report, err := runner.Run(ctx, owner, executor.Selection{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Total != 4 || report.Succeeded != 4 || report.Skipped != 0 || report.Paused {
		t.Fatalf("report = %#v", report)
	}

	want := []string{"unit 1 content", "unit 2 content", "unit 3 content", "whole prompt"}
	if len(sub.calls) != len(want) {
		t.Fatalf("calls = %v", sub.calls)
	}
	for i, call := range sub.calls {
		if call != want[i] {
			t.Errorf("call %d = %q, want %q", i, call, want[i])
		}
	}

	for _, id := range []string{batch.ID, single.ID} {
		item, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if item != nil {
			t.Errorf("item %s should be removed after drain, got %#v", id, item)
		}
	}
}

func TestRunPersistsProgressAfterEachSuccess(t *testing.T) {
	// Unit 2 fails and the run requeues; the persisted item must show unit 1
	// already drained, proving progress landed before the failure.
	sub := &fakeSubmitter{failures: map[string]int{"unit 2 content": 1}}
	res := &scriptResolver{resolutions: []executor.Resolution{{Action: executor.ActionRequeue}}}
	runner, store, _ := newTestRunner(t, sub, res)

	ctx := context.Background()
	item := testsupport.NewSubtasks(t, store, owner, 2)

	report, err := runner.Run(ctx, owner, executor.Selection{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("report = %#v", report)
	}

	kept, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if kept.Status != queue.StatusPending || len(kept.Remaining) != 1 {
		t.Fatalf("kept item = %#v", kept)
	}
	if kept.Remaining[0].FullContent != "unit 2 content" {
		t.Fatalf("remaining = %#v", kept.Remaining)
	}
}

func TestRunRetryResolution(t *testing.T) {
	sub := &fakeSubmitter{failures: map[string]int{"unit 1 content": 1}}
	res := &scriptResolver{resolutions: []executor.Resolution{{Action: executor.ActionRetry}}}
	runner, store, _ := newTestRunner(t, sub, res)

	ctx := context.Background()
	testsupport.NewSubtasks(t, store, owner, 2)

	report, err := runner.Run(ctx, owner, executor.Selection{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Succeeded != 2 {
		t.Fatalf("report = %#v", report)
	}
	if len(res.failures) != 1 {
		t.Fatalf("resolver consulted %d times, want 1", len(res.failures))
	}
	failure := res.failures[0]
	if failure.UnitIndex != 1 || failure.TotalUnits != 2 || failure.Attempt != 1 {
		t.Fatalf("failure context = %#v", failure)
	}
	// First unit attempted twice.
	if len(sub.calls) != 3 {
		t.Fatalf("calls = %v", sub.calls)
	}
}

func TestRunSkipKeepsUnitForFutureRun(t *testing.T) {
	sub := &fakeSubmitter{failures: map[string]int{"unit 2 content": 1}}
	res := &scriptResolver{resolutions: []executor.Resolution{{Action: executor.ActionSkip}}}
	runner, store, _ := newTestRunner(t, sub, res)

	ctx := context.Background()
	item := testsupport.NewSubtasks(t, store, owner, 3)

	report, err := runner.Run(ctx, owner, executor.Selection{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Succeeded != 2 || report.Skipped != 1 {
		t.Fatalf("report = %#v", report)
	}

	// The skipped unit survives as the item's remaining backlog, pending for
	// a later run; it is not retried within the same run.
	kept, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if kept == nil || kept.Status != queue.StatusPending {
		t.Fatalf("kept item = %#v", kept)
	}
	if len(kept.Remaining) != 1 || kept.Remaining[0].FullContent != "unit 2 content" {
		t.Fatalf("remaining = %#v", kept.Remaining)
	}
	if len(sub.calls) != 3 {
		t.Fatalf("skipped unit was re-attempted: %v", sub.calls)
	}
}

func TestRunSkipPreservesOriginalOrder(t *testing.T) {
	sub := &fakeSubmitter{failures: map[string]int{"unit 1 content": 1}}
	res := &scriptResolver{resolutions: []executor.Resolution{{Action: executor.ActionSkip}}}
	runner, store, _ := newTestRunner(t, sub, res)

	ctx := context.Background()
	item := testsupport.NewSubtasks(t, store, owner, 3)

	// Pause after the first success. Unit 1 is skipped, unit 2 succeeds, and
	// the pause lands before unit 3 is attempted.
	sub.onSubmit = func(string) {
		runner.Pause().Set()
	}

	report, err := runner.Run(ctx, owner, executor.Selection{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Paused || report.Succeeded != 1 || report.Skipped != 1 {
		t.Fatalf("report = %#v", report)
	}

	kept, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if kept.Status != queue.StatusPaused {
		t.Fatalf("status = %s", kept.Status)
	}
	// The persisted list keeps original relative order: skipped unit 1 ahead
	// of untried unit 3.
	if len(kept.Remaining) != 2 ||
		kept.Remaining[0].FullContent != "unit 1 content" ||
		kept.Remaining[1].FullContent != "unit 3 content" {
		t.Fatalf("remaining = %#v", kept.Remaining)
	}
}

func TestRunRequeueStopsItemOnly(t *testing.T) {
	sub := &fakeSubmitter{failures: map[string]int{"unit 1 content": 1}}
	res := &scriptResolver{resolutions: []executor.Resolution{{Action: executor.ActionRequeue}}}
	runner, store, _ := newTestRunner(t, sub, res)

	ctx := context.Background()
	batch := testsupport.NewSubtasks(t, store, owner, 2)
	time.Sleep(5 * time.Millisecond)
	single := testsupport.NewSingle(t, store, owner, "later prompt")

	report, err := runner.Run(ctx, owner, executor.Selection{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("report = %#v", report)
	}

	kept, err := store.GetByID(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if kept == nil || kept.Status != queue.StatusPending || len(kept.Remaining) != 2 {
		t.Fatalf("requeued item = %#v", kept)
	}

	// The single item after it still ran.
	if got, err := store.GetByID(ctx, single.ID); err != nil || got != nil {
		t.Fatalf("single item should have drained: %#v, %v", got, err)
	}
}

func TestRunCancelAbortsRun(t *testing.T) {
	sub := &fakeSubmitter{failures: map[string]int{"unit 1 content": 1}}
	res := &scriptResolver{resolutions: []executor.Resolution{{Action: executor.ActionCancel}}}
	runner, store, _ := newTestRunner(t, sub, res)

	ctx := context.Background()
	batch := testsupport.NewSubtasks(t, store, owner, 2)
	time.Sleep(5 * time.Millisecond)
	single := testsupport.NewSingle(t, store, owner, "untouched")

	_, err := runner.Run(ctx, owner, executor.Selection{})
	if !errors.Is(err, executor.ErrRunCancelled) {
		t.Fatalf("expected ErrRunCancelled, got %v", err)
	}

	cancelled, err := store.GetByID(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if cancelled.Status != queue.StatusError || cancelled.LastError == "" {
		t.Fatalf("cancelled item = %#v", cancelled)
	}
	if len(cancelled.Remaining) != 2 {
		t.Fatalf("remaining = %#v", cancelled.Remaining)
	}

	untouched, err := store.GetByID(ctx, single.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched == nil || untouched.Status != queue.StatusPending {
		t.Fatalf("later item should be untouched: %#v", untouched)
	}
	if len(sub.calls) != 1 {
		t.Fatalf("calls = %v", sub.calls)
	}
}

func TestRunPauseBetweenItems(t *testing.T) {
	sub := &fakeSubmitter{}
	runner, store, _ := newTestRunner(t, sub, &scriptResolver{})

	sub.onSubmit = func(content string) {
		if content == "unit 2 content" {
			runner.Pause().Set()
		}
	}

	ctx := context.Background()
	batch := testsupport.NewSubtasks(t, store, owner, 3)

	report, err := runner.Run(ctx, owner, executor.Selection{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Paused || report.Succeeded != 2 {
		t.Fatalf("report = %#v", report)
	}

	kept, err := store.GetByID(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if kept.Status != queue.StatusPaused || len(kept.Remaining) != 1 {
		t.Fatalf("paused item = %#v", kept)
	}
	if kept.Remaining[0].FullContent != "unit 3 content" {
		t.Fatalf("remaining = %#v", kept.Remaining)
	}
}

func TestRunPartialSelection(t *testing.T) {
	sub := &fakeSubmitter{}
	runner, store, _ := newTestRunner(t, sub, &scriptResolver{})

	ctx := context.Background()
	item := testsupport.NewSubtasks(t, store, owner, 3)

	report, err := runner.Run(ctx, owner, executor.Selection{
		Subtasks: map[string][]int{item.ID: {2}},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Total != 1 || report.Succeeded != 1 {
		t.Fatalf("report = %#v", report)
	}
	if len(sub.calls) != 1 || sub.calls[0] != "unit 2 content" {
		t.Fatalf("calls = %v", sub.calls)
	}

	kept, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if kept.Status != queue.StatusPending || len(kept.Remaining) != 2 {
		t.Fatalf("kept item = %#v", kept)
	}
	if kept.Remaining[0].FullContent != "unit 1 content" || kept.Remaining[1].FullContent != "unit 3 content" {
		t.Fatalf("remaining = %#v", kept.Remaining)
	}
}

func TestRunPartialSelectionDrainDeletes(t *testing.T) {
	sub := &fakeSubmitter{}
	runner, store, _ := newTestRunner(t, sub, &scriptResolver{})

	ctx := context.Background()
	item := testsupport.NewSubtasks(t, store, owner, 2)

	if _, err := runner.Run(ctx, owner, executor.Selection{
		Subtasks: map[string][]int{item.ID: {1, 2}},
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got, err := store.GetByID(ctx, item.ID); err != nil || got != nil {
		t.Fatalf("fully drained item should be removed: %#v, %v", got, err)
	}
}

func TestRunPartialSelectionOutOfRange(t *testing.T) {
	runner, store, _ := newTestRunner(t, &fakeSubmitter{}, &scriptResolver{})

	item := testsupport.NewSubtasks(t, store, owner, 2)
	_, err := runner.Run(context.Background(), owner, executor.Selection{
		Subtasks: map[string][]int{item.ID: {5}},
	})
	if err == nil {
		t.Fatal("expected out-of-range selection to fail")
	}
}

func TestRunUnknownSelection(t *testing.T) {
	runner, _, _ := newTestRunner(t, &fakeSubmitter{}, &scriptResolver{})

	if _, err := runner.Run(context.Background(), owner, executor.Selection{Items: []string{"missing"}}); err == nil {
		t.Fatal("expected unknown item to fail")
	}
}

func TestRunRejectsForeignItem(t *testing.T) {
	runner, store, _ := newTestRunner(t, &fakeSubmitter{}, &scriptResolver{})

	item := testsupport.NewSingle(t, store, "other-owner", "theirs")
	if _, err := runner.Run(context.Background(), owner, executor.Selection{Items: []string{item.ID}}); err == nil {
		t.Fatal("expected foreign item to fail")
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	runner, _, cfg := newTestRunner(t, &fakeSubmitter{}, &scriptResolver{})

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "run-"+owner+".lock"))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("test lock: %v %v", locked, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if _, err := runner.Run(context.Background(), owner, executor.Selection{}); !errors.Is(err, executor.ErrRunActive) {
		t.Fatalf("expected ErrRunActive, got %v", err)
	}
}

func TestRunResetsStrandedItems(t *testing.T) {
	sub := &fakeSubmitter{}
	runner, store, _ := newTestRunner(t, sub, &scriptResolver{})

	ctx := context.Background()
	item := testsupport.NewSingle(t, store, owner, "stranded prompt")
	item.Status = queue.StatusInProgress
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	report, err := runner.Run(ctx, owner, executor.Selection{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("stranded item was not recovered: %#v", report)
	}
}

func TestPolicyResolverRetryEscalates(t *testing.T) {
	resolver, err := executor.NewPolicyResolver("retry")
	if err != nil {
		t.Fatalf("NewPolicyResolver failed: %v", err)
	}

	ctx := context.Background()
	early, err := resolver.Resolve(ctx, executor.Failure{Attempt: 1})
	if err != nil || early.Action != executor.ActionRetry || !early.Delay {
		t.Fatalf("attempt 1 = %#v, %v", early, err)
	}
	late, err := resolver.Resolve(ctx, executor.Failure{Attempt: 3})
	if err != nil || late.Action != executor.ActionCancel {
		t.Fatalf("attempt 3 = %#v, %v", late, err)
	}
}

func TestNewPolicyResolverRejectsUnknown(t *testing.T) {
	if _, err := executor.NewPolicyResolver("explode"); err == nil {
		t.Fatal("expected unknown action to fail")
	}
}

func TestFlag(t *testing.T) {
	var flag executor.Flag
	if flag.IsSet() {
		t.Fatal("fresh flag should be clear")
	}
	flag.Set()
	if !flag.IsSet() {
		t.Fatal("set flag should read set")
	}
	flag.Clear()
	if flag.IsSet() {
		t.Fatal("cleared flag should read clear")
	}
}
