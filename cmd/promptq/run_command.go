package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"promptq/internal/executor"
	"promptq/internal/notifications"
	"promptq/internal/queue"
	"promptq/internal/schedule"
	"promptq/internal/services/tasks"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var onFailure string
	var pauseAfter int

	cmd := &cobra.Command{
		Use:   "run [itemID[:indices]]...",
		Short: "Submit queued items to the task service in order",
		Long: "Drain the queue, one submission at a time. Without arguments every " +
			"runnable item is processed oldest-first. Arguments restrict the run to " +
			"specific items; <itemID>:3,5 submits only those subtask positions. " +
			"Ctrl-C pauses cooperatively after the in-flight submission; a second " +
			"Ctrl-C cancels the run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			sel, err := executor.ParseSelection(args)
			if err != nil {
				return err
			}

			var resolver executor.Resolver
			if strings.TrimSpace(onFailure) != "" {
				resolver, err = executor.NewPolicyResolver(onFailure)
				if err != nil {
					return err
				}
			} else {
				resolver = &promptResolver{in: cmd.InOrStdin(), out: cmd.ErrOrStderr()}
			}

			return ctx.withStore(cmd.Context(), func(store *queue.Store, owner string) error {
				sel, err = expandSelection(cmd, store, owner, sel)
				if err != nil {
					return err
				}
				promoted, err := promoteDue(cmd.Context(), store, owner)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				submitter := &announcingSubmitter{
					next: &executor.ServiceSubmitter{
						Client:        tasks.NewFromConfig(cfg),
						DefaultBranch: cfg.Service.DefaultBranch,
					},
					out: out,
				}

				runner := executor.NewRunner(cfg, store, submitter, resolver, ctx.ensureLogger())
				if pauseAfter > 0 {
					submitter.pauseAfter = int64(pauseAfter)
					submitter.pause = runner.Pause()
				}

				runCtx, stop := watchInterrupts(cmd.Context(), runner.Pause(), cmd.ErrOrStderr())
				defer stop()

				notifier := notifications.NewService(cfg)
				notify := func(fn func() error) {
					if err := fn(); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: notification failed: %v\n", err)
					}
				}

				report, err := runner.Run(runCtx, owner, sel)
				if rerr := rescheduleFailures(cmd.Context(), store, owner, promoted); rerr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", rerr)
				}
				switch {
				case errors.Is(err, executor.ErrRunActive):
					return fmt.Errorf("another run is already active for this owner")
				case errors.Is(err, executor.ErrRunCancelled):
					fmt.Fprintf(out, "Run cancelled: %d/%d submitted, %d skipped\n", report.Succeeded, report.Total, report.Skipped)
					notify(func() error { return notifier.NotifyRunCancelled(cmd.Context(), "") })
					return nil
				case err != nil:
					return err
				}

				if report.Total == 0 {
					fmt.Fprintln(out, "Nothing to run")
					return nil
				}
				if report.Paused {
					fmt.Fprintf(out, "Run paused: %d/%d submitted, %d skipped\n", report.Succeeded, report.Total, report.Skipped)
					notify(func() error { return notifier.NotifyRunPaused(cmd.Context(), report.Succeeded, report.Total) })
					return nil
				}
				fmt.Fprintf(out, "Run complete: %d/%d submitted, %d skipped\n", report.Succeeded, report.Total, report.Skipped)
				notify(func() error {
					return notifier.NotifyRunCompleted(cmd.Context(), report.Succeeded, report.Skipped, report.Total)
				})
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&onFailure, "on-failure", "", "Non-interactive failure policy: retry, skip, requeue, or cancel")
	cmd.Flags().IntVar(&pauseAfter, "pause-after", 0, "Pause the run after this many successful submissions")
	return cmd
}

// expandSelection resolves short item-id prefixes to full ids.
func expandSelection(cmd *cobra.Command, store *queue.Store, owner string, sel executor.Selection) (executor.Selection, error) {
	if sel.IsEmpty() {
		return sel, nil
	}
	resolved := executor.Selection{Subtasks: make(map[string][]int, len(sel.Subtasks))}
	for _, ref := range sel.Items {
		item, err := resolveItem(cmd, store, owner, ref)
		if err != nil {
			return executor.Selection{}, err
		}
		resolved.Items = append(resolved.Items, item.ID)
	}
	for ref, indices := range sel.Subtasks {
		item, err := resolveItem(cmd, store, owner, ref)
		if err != nil {
			return executor.Selection{}, err
		}
		resolved.Subtasks[item.ID] = indices
	}
	return resolved, nil
}

// promotedItem remembers the trigger a scheduled item carried before the run
// promoted it, so a retry-on-failure item can be put back on the schedule.
type promotedItem struct {
	id   string
	at   time.Time
	zone string
}

// promoteDue returns due scheduled items to pending so the run picks them up.
func promoteDue(ctx context.Context, store *queue.Store, owner string) ([]promotedItem, error) {
	due, err := schedule.Due(ctx, store, owner, time.Now())
	if err != nil {
		return nil, err
	}
	promoted := make([]promotedItem, 0, len(due))
	for _, item := range due {
		entry := promotedItem{id: item.ID, zone: item.ScheduledTimeZone}
		if item.ScheduledAt != nil {
			entry.at = *item.ScheduledAt
		}
		item.Status = queue.StatusPending
		item.ScheduledAt = nil
		item.ScheduledTimeZone = ""
		if err := store.Update(ctx, item); err != nil {
			return nil, fmt.Errorf("promote scheduled item %s: %w", item.ID, err)
		}
		promoted = append(promoted, entry)
	}
	return promoted, nil
}

// promoteRetryLimit caps how many failed activations a retry-on-failure item
// gets before it stays errored.
const promoteRetryLimit = 3

// rescheduleFailures puts promoted items that errored during the run back on
// the schedule when they were queued with retry-on-failure, counting the
// attempt. The trigger instant is already in the past, so the next run's
// promotion pass picks them up again.
func rescheduleFailures(ctx context.Context, store *queue.Store, owner string, promoted []promotedItem) error {
	for _, entry := range promoted {
		item, err := store.GetByID(ctx, entry.id)
		if err != nil {
			return err
		}
		if item == nil || item.OwnerID != owner || item.Status != queue.StatusError {
			continue
		}
		if !item.RetryOnFailure || item.RetryCount >= promoteRetryLimit {
			continue
		}
		at := entry.at
		item.Status = queue.StatusScheduled
		item.ScheduledAt = &at
		item.ScheduledTimeZone = entry.zone
		if err := schedule.BumpRetry(ctx, store, item, nil); err != nil {
			return fmt.Errorf("reschedule item %s: %w", item.ID, err)
		}
	}
	return nil
}

// announcingSubmitter prints session URLs for auto-open items and trips the
// pause flag once the configured number of submissions succeeded.
type announcingSubmitter struct {
	next       executor.Submitter
	out        io.Writer
	pause      *executor.Flag
	pauseAfter int64
	succeeded  atomic.Int64
}

func (a *announcingSubmitter) Submit(ctx context.Context, item *queue.Item, unit queue.Subtask) (string, error) {
	url, err := a.next.Submit(ctx, item, unit)
	if err != nil {
		return "", err
	}
	if item.AutoOpen && url != "" {
		fmt.Fprintf(a.out, "Submitted %d/%d: %s\n", unit.Position, unit.Total, url)
	}
	if a.pauseAfter > 0 && a.succeeded.Add(1) >= a.pauseAfter {
		a.pause.Set()
	}
	return url, nil
}

// promptResolver asks the user how to handle a failed submission.
type promptResolver struct {
	in  io.Reader
	out io.Writer

	scanner *bufio.Scanner
}

func (p *promptResolver) Resolve(ctx context.Context, failure executor.Failure) (executor.Resolution, error) {
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.in)
	}

	fmt.Fprintf(p.out, "Submission %d/%d failed: %v\n", failure.UnitIndex, failure.TotalUnits, failure.Err)
	for {
		if err := ctx.Err(); err != nil {
			return executor.Resolution{}, err
		}
		fmt.Fprint(p.out, "[r]etry, [d]elayed retry, [s]kip, re[q]ueue, or [c]ancel? ")
		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				return executor.Resolution{}, err
			}
			return executor.Resolution{Action: executor.ActionCancel}, nil
		}
		switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
		case "r", "retry":
			return executor.Resolution{Action: executor.ActionRetry}, nil
		case "d", "delay", "delayed":
			return executor.Resolution{Action: executor.ActionRetry, Delay: true}, nil
		case "s", "skip":
			return executor.Resolution{Action: executor.ActionSkip}, nil
		case "q", "requeue":
			return executor.Resolution{Action: executor.ActionRequeue}, nil
		case "c", "cancel":
			return executor.Resolution{Action: executor.ActionCancel}, nil
		}
		fmt.Fprintln(p.out, "Unrecognized choice")
	}
}

// watchInterrupts turns the first SIGINT into a cooperative pause and the
// second into a context cancellation.
func watchInterrupts(parent context.Context, pause *executor.Flag, out io.Writer) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-signals:
			pause.Set()
			fmt.Fprintln(out, "Pausing after the current submission (interrupt again to cancel)")
		case <-ctx.Done():
			return
		}
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(signals)
		cancel()
	}
}
