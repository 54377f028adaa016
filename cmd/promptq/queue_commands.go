package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"promptq/internal/queue"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []queue.Status
			for _, raw := range listStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(cmd.Context(), func(store *queue.Store, owner string) error {
				items, err := store.List(cmd.Context(), owner, statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						shortID(item.ID),
						truncate(item.Title, 40),
						string(item.Type),
						itemUnits(item),
						string(item.Status),
						formatSchedule(item),
						formatTimestamp(item.CreatedAt),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Type", "Units", "Status", "Scheduled", "Created"},
					rows,
					3,
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show one queue item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *queue.Store, owner string) error {
				item, err := resolveItem(cmd, store, owner, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", item.ID)
				fmt.Fprintf(out, "Title:     %s\n", item.Title)
				fmt.Fprintf(out, "Type:      %s\n", item.Type)
				fmt.Fprintf(out, "Status:    %s\n", item.Status)
				fmt.Fprintf(out, "Source:    %s\n", orDash(item.SourceID))
				fmt.Fprintf(out, "Branch:    %s\n", orDash(item.Branch))
				fmt.Fprintf(out, "Scheduled: %s\n", formatSchedule(item))
				fmt.Fprintf(out, "Retries:   %d (retry on failure: %s)\n", item.RetryCount, yesNo(item.RetryOnFailure))
				fmt.Fprintf(out, "Auto-open: %s\n", yesNo(item.AutoOpen))
				fmt.Fprintf(out, "Created:   %s\n", formatTimestamp(item.CreatedAt))
				fmt.Fprintf(out, "Updated:   %s\n", formatTimestamp(item.UpdatedAt))
				if item.LastError != "" {
					fmt.Fprintf(out, "Last err:  %s\n", item.LastError)
				}

				if item.Type == queue.TypeSubtasks {
					fmt.Fprintf(out, "Remaining: %d\n", len(item.Remaining))
					rows := make([][]string, 0, len(item.Remaining))
					for _, unit := range item.Remaining {
						rows = append(rows, []string{
							fmt.Sprintf("%d/%d", unit.Position, unit.Total),
							truncate(unit.Title, 48),
							strconv.Itoa(len(unit.FullContent)),
						})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Seq", "Title", "Chars"},
						rows,
						0, 2,
					))
				}
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <itemID>...",
		Short: "Remove queue items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *queue.Store, owner string) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					item, err := resolveItem(cmd, store, owner, arg)
					if err != nil {
						return err
					}
					removed, err := store.Remove(cmd.Context(), item.ID)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "Removed %s\n", shortID(item.ID))
					} else {
						fmt.Fprintf(out, "Item %s not found\n", arg)
					}
				}
				return nil
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Return errored items to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *queue.Store, owner string) error {
				updated, err := store.RetryErrored(cmd.Context(), owner)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d errored items\n", updated)
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var clearDone bool
	var clearErrored bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items in bulk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearDone && clearErrored {
				return fmt.Errorf("specify only one of --done or --errored")
			}
			return ctx.withStore(cmd.Context(), func(store *queue.Store, owner string) error {
				out := cmd.OutOrStdout()
				var removed int64
				var err error
				switch {
				case clearDone:
					removed, err = store.ClearDone(cmd.Context(), owner)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d done items\n", removed)
				case clearErrored:
					removed, err = store.ClearErrored(cmd.Context(), owner)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d errored items\n", removed)
				default:
					removed, err = store.Clear(cmd.Context(), owner)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d queue items\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearDone, "done", false, "Remove only done items")
	cmd.Flags().BoolVar(&clearErrored, "errored", false, "Remove only errored items")
	return cmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var database bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *queue.Store, owner string) error {
				out := cmd.OutOrStdout()
				health, err := store.Health(cmd.Context(), owner)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Total: %d\nPending: %d\nScheduled: %d\nIn progress: %d\nPaused: %d\nDone: %d\nErrored: %d\n",
					health.Total,
					health.Pending,
					health.Scheduled,
					health.InProgress,
					health.Paused,
					health.Done,
					health.Errored,
				)

				if !database {
					return nil
				}
				db, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nDatabase: %s\n", db.DBPath)
				fmt.Fprintf(out, "Readable: %s\n", yesNo(db.DatabaseReadable))
				fmt.Fprintf(out, "Schema complete: %s\n", yesNo(db.TableExists && len(db.MissingColumns) == 0))
				if len(db.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(db.MissingColumns, ", "))
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(db.IntegrityCheck))
				if db.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", db.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&database, "database", false, "Include database diagnostics")
	return cmd
}

// resolveItem accepts a full id or a unique short prefix, scoped to owner.
func resolveItem(cmd *cobra.Command, store *queue.Store, owner, ref string) (*queue.Item, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty item id")
	}

	item, err := store.GetByID(cmd.Context(), ref)
	if err != nil {
		return nil, err
	}
	if item != nil && item.OwnerID == owner {
		return item, nil
	}

	items, err := store.List(cmd.Context(), owner)
	if err != nil {
		return nil, err
	}
	var match *queue.Item
	for _, candidate := range items {
		if !strings.HasPrefix(candidate.ID, ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("item id %q is ambiguous", ref)
		}
		match = candidate
	}
	if match == nil {
		return nil, fmt.Errorf("item %q not found", ref)
	}
	return match, nil
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
