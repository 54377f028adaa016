package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"promptq/internal/queue"
	"promptq/internal/schedule"
)

const scheduleTimeLayout = "2006-01-02 15:04"

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var atFlag string
	var zoneFlag string
	var retryOnFailure bool

	cmd := &cobra.Command{
		Use:   "schedule <itemID>...",
		Short: "Schedule queue items for a future run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zone := strings.TrimSpace(zoneFlag)
			if zone == "" {
				zone = "Local"
			}
			at, err := parseScheduleTime(atFlag, zone)
			if err != nil {
				return err
			}
			if err := schedule.Validate(at, zone, time.Now()); err != nil {
				return err
			}

			return ctx.withStore(cmd.Context(), func(store *queue.Store, owner string) error {
				ids, err := resolveItemIDs(cmd, store, owner, args)
				if err != nil {
					return err
				}
				if err := schedule.Schedule(cmd.Context(), store, owner, ids, at, zone, retryOnFailure); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %d items for %s (%s)\n", len(ids), at.Format(scheduleTimeLayout), zone)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&atFlag, "at", "", "Run time, \"2006-01-02 15:04\" or RFC 3339")
	cmd.Flags().StringVar(&zoneFlag, "zone", "", "IANA time zone the run time is interpreted in (default local)")
	cmd.Flags().BoolVar(&retryOnFailure, "retry-on-failure", false, "Keep the item scheduled after a failed activation")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func newUnscheduleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unschedule <itemID>...",
		Short: "Return scheduled items to pending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *queue.Store, owner string) error {
				ids, err := resolveItemIDs(cmd, store, owner, args)
				if err != nil {
					return err
				}
				if err := schedule.Unschedule(cmd.Context(), store, owner, ids); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unscheduled %d items\n", len(ids))
				return nil
			})
		},
	}
}

func parseScheduleTime(value, zone string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("--at is required")
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load time zone %q: %w", zone, err)
	}
	if at, err := time.ParseInLocation(scheduleTimeLayout, value, loc); err == nil {
		return at, nil
	}
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: expected %q or RFC 3339", value, scheduleTimeLayout)
	}
	return at, nil
}

func resolveItemIDs(cmd *cobra.Command, store *queue.Store, owner string, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		item, err := resolveItem(cmd, store, owner, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, item.ID)
	}
	return ids, nil
}
