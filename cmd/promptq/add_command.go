package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"promptq/internal/queue"
	"promptq/internal/segment"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var split bool
	var sourceID string
	var branch string
	var title string
	var noAutoOpen bool
	var yes bool

	cmd := &cobra.Command{
		Use:   "add [prompt]",
		Short: "Add a prompt to the queue",
		Long:  "Add a prompt to the queue as a single item, or split it into ordered subtasks with --split. Reads the prompt from stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd, args)
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(title) == "" {
				title = segment.ExtractTitle(prompt)
			}
			if strings.TrimSpace(branch) == "" {
				branch = cfg.Service.DefaultBranch
			}

			return ctx.withStore(cmd.Context(), func(store *queue.Store, owner string) error {
				out := cmd.OutOrStdout()

				if !split {
					item, err := store.NewSingle(cmd.Context(), owner, title, prompt, sourceID, branch)
					if err != nil {
						return err
					}
					if noAutoOpen {
						item.AutoOpen = false
						if err := store.Update(cmd.Context(), item); err != nil {
							return err
						}
					}
					fmt.Fprintf(out, "Queued %s (%s)\n", shortID(item.ID), item.Title)
					return nil
				}

				result := segment.Analyze(prompt, segment.Options{
					MinParagraphs:    cfg.Segmenter.MinParagraphs,
					MinSectionLength: cfg.Segmenter.MinSectionLength,
				})
				if result.Strategy == segment.StrategyNone {
					return errors.New("prompt could not be split into subtasks; add it without --split")
				}

				validation := segment.Validate(result.Subtasks, segment.Limits{
					WarnSubtaskCount:  cfg.Segmenter.WarnSubtaskCount,
					WarnContentLength: cfg.Segmenter.WarnContentLength,
				})
				for _, warning := range validation.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
				}
				if !validation.Valid {
					return errors.New(strings.Join(validation.Errors, "; "))
				}
				if len(validation.Warnings) > 0 && !yes {
					ok, err := confirmQueue(cmd)
					if err != nil {
						return err
					}
					if !ok {
						return errors.New("aborted; re-run with --yes to queue despite warnings")
					}
				}

				units := make([]queue.Subtask, 0, len(result.Subtasks))
				for _, seq := range segment.Sequence(result.Subtasks) {
					units = append(units, queue.Subtask{
						Title:       seq.Title,
						FullContent: seq.FullContent,
						Position:    seq.Sequence.Current,
						Total:       seq.Sequence.Total,
					})
				}

				item, err := store.NewSubtasks(cmd.Context(), owner, title, prompt, units, sourceID, branch)
				if err != nil {
					return err
				}
				if noAutoOpen {
					item.AutoOpen = false
					if err := store.Update(cmd.Context(), item); err != nil {
						return err
					}
				}
				fmt.Fprintf(out, "Queued %s (%s) with %d subtasks [%s]\n", shortID(item.ID), item.Title, len(units), result.Strategy)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&split, "split", false, "Segment the prompt into ordered subtasks")
	cmd.Flags().StringVar(&sourceID, "source", "", "Source repository id submissions run against")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch submissions target (default from config)")
	cmd.Flags().StringVar(&title, "title", "", "Item title (derived from the prompt when omitted)")
	cmd.Flags().BoolVar(&noAutoOpen, "no-auto-open", false, "Do not surface session URLs for opening after submission")
	cmd.Flags().BoolVar(&yes, "yes", false, "Queue despite validation warnings without prompting")
	return cmd
}

// confirmQueue asks whether to queue an item whose split validated with
// warnings. Anything other than an explicit yes declines.
func confirmQueue(cmd *cobra.Command) (bool, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Queue anyway? [y/N] ")
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func readPrompt(cmd *cobra.Command, args []string) (string, error) {
	var prompt string
	if len(args) == 1 && args[0] != "-" {
		prompt = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read prompt from stdin: %w", err)
		}
		prompt = string(data)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is empty")
	}
	return prompt, nil
}
