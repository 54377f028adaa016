package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"promptq/internal/config"
	"promptq/internal/logging"
	"promptq/internal/queue"
	"promptq/internal/services"
	"promptq/internal/textutil"
)

var (
	// ErrRunActive means another run already holds the owner's run lock.
	ErrRunActive = errors.New("another run is already active for this owner")
	// ErrRunCancelled aborts the whole run after a cancel resolution.
	ErrRunCancelled = errors.New("run cancelled")
)

// Report summarizes what a run accomplished before it finished, paused, or
// was cancelled.
type Report struct {
	Total     int
	Succeeded int
	Skipped   int
	Paused    bool
}

// Runner drains an owner's queue against the task service.
type Runner struct {
	store       *queue.Store
	submitter   Submitter
	resolver    Resolver
	logger      *slog.Logger
	pacingDelay time.Duration
	retryDelay  time.Duration
	lockDir     string
	pause       *Flag
}

// NewRunner wires a run loop from configuration.
func NewRunner(cfg *config.Config, store *queue.Store, submitter Submitter, resolver Resolver, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		store:       store,
		submitter:   submitter,
		resolver:    resolver,
		logger:      logging.NewComponentLogger(logger, "executor"),
		pacingDelay: time.Duration(cfg.Executor.PacingDelayMS) * time.Millisecond,
		retryDelay:  time.Duration(cfg.Executor.RetryDelayMS) * time.Millisecond,
		lockDir:     cfg.Paths.DataDir,
		pause:       &Flag{},
	}
}

// Pause returns the cooperative pause flag for this runner.
func (r *Runner) Pause() *Flag {
	return r.pause
}

type partialEntry struct {
	item    *queue.Item
	indices []int
}

// Run processes the selection (or the owner's whole runnable queue) in
// creation order. It returns the report accumulated so far regardless of how
// the run ended.
func (r *Runner) Run(ctx context.Context, ownerID string, sel Selection) (Report, error) {
	report := Report{}

	lock := flock.New(filepath.Join(r.lockDir, "run-"+lockName(ownerID)+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return report, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return report, ErrRunActive
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if reset, err := r.store.ResetStranded(ctx, ownerID); err != nil {
		return report, err
	} else if reset > 0 {
		r.logger.Warn("reset stranded in-progress items",
			logging.String(logging.FieldOwnerID, ownerID),
			logging.Int64("count", reset))
	}

	partials, whole, err := r.collect(ctx, ownerID, sel)
	if err != nil {
		return report, err
	}
	for _, entry := range partials {
		report.Total += len(entry.indices)
	}
	for _, item := range whole {
		report.Total += item.UnitCount()
	}

	r.logger.Info("run started",
		logging.String(logging.FieldOwnerID, ownerID),
		logging.Int("units", report.Total))

	for _, entry := range partials {
		stop, err := r.processPartial(ctx, entry, &report)
		if err != nil || stop {
			return report, err
		}
	}
	for _, item := range whole {
		var stop bool
		var err error
		if item.Type == queue.TypeSubtasks {
			stop, err = r.processSubtasks(ctx, item, &report)
		} else {
			stop, err = r.processSingle(ctx, item, &report)
		}
		if err != nil || stop {
			return report, err
		}
	}

	r.logger.Info("run finished",
		logging.String(logging.FieldOwnerID, ownerID),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("skipped", report.Skipped))
	return report, nil
}

// collect resolves the selection into partial-batch entries and whole items,
// both ordered by creation time.
func (r *Runner) collect(ctx context.Context, ownerID string, sel Selection) ([]partialEntry, []*queue.Item, error) {
	if sel.IsEmpty() {
		items, err := r.store.Processable(ctx, ownerID)
		return nil, items, err
	}

	var partials []partialEntry
	for id, indices := range sel.Subtasks {
		item, err := r.fetchRunnable(ctx, ownerID, id)
		if err != nil {
			return nil, nil, err
		}
		if item.Type != queue.TypeSubtasks {
			return nil, nil, services.Wrap(services.ErrValidation, "executor", "collect",
				fmt.Sprintf("item %s has no subtasks", id), nil)
		}
		for _, idx := range indices {
			if idx > len(item.Remaining) {
				return nil, nil, services.Wrap(services.ErrValidation, "executor", "collect",
					fmt.Sprintf("item %s has %d units, position %d does not exist", id, len(item.Remaining), idx), nil)
			}
		}
		partials = append(partials, partialEntry{item: item, indices: indices})
	}
	sort.Slice(partials, func(i, j int) bool {
		return partials[i].item.CreatedAt.Before(partials[j].item.CreatedAt)
	})

	var whole []*queue.Item
	for _, id := range sel.Items {
		item, err := r.fetchRunnable(ctx, ownerID, id)
		if err != nil {
			return nil, nil, err
		}
		whole = append(whole, item)
	}
	sort.Slice(whole, func(i, j int) bool {
		return whole[i].CreatedAt.Before(whole[j].CreatedAt)
	})
	return partials, whole, nil
}

func (r *Runner) fetchRunnable(ctx context.Context, ownerID, id string) (*queue.Item, error) {
	item, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.OwnerID != ownerID {
		return nil, services.Wrap(services.ErrNotFound, "executor", "collect", fmt.Sprintf("item %s", id), nil)
	}
	switch item.Status {
	case queue.StatusPending, queue.StatusPaused:
		return item, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "executor", "collect",
			fmt.Sprintf("item %s is %s, not runnable", id, item.Status), nil)
	}
}

// processPartial submits the chosen unit positions of one item, ascending.
// Successful units leave Remaining immediately; skipped units stay in place.
func (r *Runner) processPartial(ctx context.Context, entry partialEntry, report *Report) (bool, error) {
	item := entry.item
	item.Status = queue.StatusInProgress
	if err := r.store.Update(ctx, item); err != nil {
		return false, err
	}

	removed := 0
	total := len(entry.indices)
	for i, position := range entry.indices {
		idx := position - 1 - removed
		if idx < 0 || idx >= len(item.Remaining) {
			continue
		}
		if r.pause.IsSet() {
			return true, r.pauseItem(ctx, item, report)
		}

		unit := item.Remaining[idx]
		outcome, err := r.submitWithResolution(ctx, item, unit, i+1, total)
		if err != nil {
			item.Status = queue.StatusError
			item.LastError = outcome.message
			if persistErr := r.store.Update(ctx, item); persistErr != nil {
				return false, persistErr
			}
			return false, err
		}
		switch outcome.result {
		case unitSucceeded:
			item.Remaining = append(item.Remaining[:idx], item.Remaining[idx+1:]...)
			removed++
			report.Succeeded++
			r.persistProgress(ctx, item)
			r.sleep(ctx, r.pacingDelay)
		case unitSkipped:
			report.Skipped++
		case itemRequeued:
			item.Status = queue.StatusPending
			return false, r.store.Update(ctx, item)
		}
	}

	if len(item.Remaining) == 0 {
		_, err := r.store.Remove(ctx, item.ID)
		return false, err
	}
	item.Status = queue.StatusPending
	return false, r.store.Update(ctx, item)
}

// processSingle submits a whole-prompt item. Success removes the item.
func (r *Runner) processSingle(ctx context.Context, item *queue.Item, report *Report) (bool, error) {
	if r.pause.IsSet() {
		return true, r.pauseItem(ctx, item, report)
	}
	item.Status = queue.StatusInProgress
	if err := r.store.Update(ctx, item); err != nil {
		return false, err
	}

	unit := queue.Subtask{
		Title:       item.Title,
		FullContent: item.Prompt,
		Position:    1,
		Total:       1,
	}
	outcome, err := r.submitWithResolution(ctx, item, unit, 1, 1)
	if err != nil {
		item.Status = queue.StatusError
		item.LastError = outcome.message
		if persistErr := r.store.Update(ctx, item); persistErr != nil {
			return false, persistErr
		}
		return false, err
	}
	switch outcome.result {
	case unitSucceeded:
		report.Succeeded++
		if _, err := r.store.Remove(ctx, item.ID); err != nil {
			return false, err
		}
		r.sleep(ctx, r.pacingDelay)
	case unitSkipped:
		report.Skipped++
		item.Status = queue.StatusPending
		return false, r.store.Update(ctx, item)
	case itemRequeued:
		item.Status = queue.StatusPending
		return false, r.store.Update(ctx, item)
	}
	return false, nil
}

// processSubtasks drains an item's remaining units in strict FIFO order.
// Skipped units accumulate in a backlog that precedes the untried rest, so
// the persisted Remaining always keeps the original relative order.
func (r *Runner) processSubtasks(ctx context.Context, item *queue.Item, report *Report) (bool, error) {
	item.Status = queue.StatusInProgress
	if err := r.store.Update(ctx, item); err != nil {
		return false, err
	}

	var backlog []queue.Subtask
	total := len(item.Remaining)
	position := 0

	persistUnits := func() []queue.Subtask {
		units := make([]queue.Subtask, 0, len(backlog)+len(item.Remaining))
		units = append(units, backlog...)
		units = append(units, item.Remaining...)
		return units
	}

	for len(item.Remaining) > 0 {
		if r.pause.IsSet() {
			item.Remaining = persistUnits()
			return true, r.pauseItem(ctx, item, report)
		}
		position++

		unit := item.Remaining[0]
		outcome, err := r.submitWithResolution(ctx, item, unit, position, total)
		if err != nil {
			item.Remaining = persistUnits()
			item.Status = queue.StatusError
			item.LastError = outcome.message
			if persistErr := r.store.Update(ctx, item); persistErr != nil {
				return false, persistErr
			}
			return false, err
		}
		switch outcome.result {
		case unitSucceeded:
			item.Remaining = item.Remaining[1:]
			report.Succeeded++
			snapshot := *item
			snapshot.Remaining = persistUnits()
			r.persistProgress(ctx, &snapshot)
			r.sleep(ctx, r.pacingDelay)
		case unitSkipped:
			backlog = append(backlog, unit)
			item.Remaining = item.Remaining[1:]
			report.Skipped++
			snapshot := *item
			snapshot.Remaining = persistUnits()
			r.persistProgress(ctx, &snapshot)
		case itemRequeued:
			item.Remaining = persistUnits()
			item.Status = queue.StatusPending
			return false, r.store.Update(ctx, item)
		}
	}

	if len(backlog) > 0 {
		// Skipped units wait for a future run rather than a same-run pass.
		item.Remaining = backlog
		item.Status = queue.StatusPending
		r.logger.Info("item drained with skip backlog",
			logging.String(logging.FieldItemID, item.ID),
			logging.Int("backlog", len(backlog)))
		return false, r.store.Update(ctx, item)
	}
	_, err := r.store.Remove(ctx, item.ID)
	return false, err
}

type unitResult int

const (
	unitSucceeded unitResult = iota
	unitSkipped
	itemRequeued
)

type unitOutcome struct {
	result  unitResult
	message string
}

// submitWithResolution performs the submission and loops through resolver
// decisions until the unit succeeds or a non-retry action is chosen. The
// returned error is non-nil only for cancellation or resolver failure.
func (r *Runner) submitWithResolution(ctx context.Context, item *queue.Item, unit queue.Subtask, unitIndex, totalUnits int) (unitOutcome, error) {
	attempt := 0
	for {
		attempt++
		sessionURL, err := r.submitter.Submit(ctx, item, unit)
		if err == nil {
			r.logger.Info("unit submitted",
				logging.String(logging.FieldItemID, item.ID),
				logging.Int("unit", unitIndex),
				logging.Int("of", totalUnits),
				logging.String("session_url", sessionURL))
			return unitOutcome{result: unitSucceeded}, nil
		}

		r.logger.Warn("submission failed",
			logging.String(logging.FieldItemID, item.ID),
			logging.Int("unit", unitIndex),
			logging.Int("attempt", attempt),
			logging.Error(err))

		resolution, resolveErr := r.resolver.Resolve(ctx, Failure{
			Item:       item,
			Unit:       unit,
			UnitIndex:  unitIndex,
			TotalUnits: totalUnits,
			Attempt:    attempt,
			Err:        err,
		})
		if resolveErr != nil {
			return unitOutcome{message: err.Error()}, fmt.Errorf("resolve failure: %w", resolveErr)
		}
		switch resolution.Action {
		case ActionRetry:
			if resolution.Delay {
				r.sleep(ctx, r.retryDelay)
			}
			continue
		case ActionSkip:
			return unitOutcome{result: unitSkipped}, nil
		case ActionRequeue:
			return unitOutcome{result: itemRequeued}, nil
		case ActionCancel:
			return unitOutcome{message: err.Error()}, ErrRunCancelled
		default:
			return unitOutcome{message: err.Error()}, fmt.Errorf("unknown resolution action %q", resolution.Action)
		}
	}
}

// pauseItem persists the paused state. This write must land, so its error is
// surfaced to the caller.
func (r *Runner) pauseItem(ctx context.Context, item *queue.Item, report *Report) error {
	report.Paused = true
	item.Status = queue.StatusPaused
	if err := r.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist paused item %s: %w", item.ID, err)
	}
	r.logger.Info("run paused",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int("remaining", len(item.Remaining)))
	return nil
}

// persistProgress records mid-item progress. A failed write here loses at
// most one unit of progress on crash, so it is logged and swallowed.
func (r *Runner) persistProgress(ctx context.Context, item *queue.Item) {
	if err := r.store.Update(ctx, item); err != nil {
		r.logger.Warn("progress persist failed",
			logging.String(logging.FieldItemID, item.ID),
			logging.Error(err))
	}
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func lockName(ownerID string) string {
	return textutil.SanitizeToken(ownerID)
}
