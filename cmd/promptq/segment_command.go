package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"promptq/internal/segment"
)

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "segment [prompt]",
		Short: "Preview how a prompt would be split into subtasks",
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

			result := segment.Analyze(prompt, segment.Options{
				MinParagraphs:    cfg.Segmenter.MinParagraphs,
				MinSectionLength: cfg.Segmenter.MinSectionLength,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Strategy: %s\n", result.Strategy)
			if result.Strategy == segment.StrategyNone {
				fmt.Fprintln(out, "Prompt would be submitted as a single task.")
				return nil
			}

			summary := segment.Summarize(result.Subtasks)
			fmt.Fprintf(out, "Subtasks: %d (about %d minutes)\n", summary.TotalSubtasks, summary.EstimatedMinutes)

			rows := make([][]string, 0, len(summary.Breakdown))
			for _, entry := range summary.Breakdown {
				rows = append(rows, []string{
					strconv.Itoa(entry.Number),
					truncate(entry.Title, 48),
					strconv.Itoa(entry.ContentLength),
					strconv.Itoa(entry.Lines),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Title", "Chars", "Lines"},
				rows,
				0, 2, 3,
			))

			validation := segment.Validate(result.Subtasks, segment.Limits{
				WarnSubtaskCount:  cfg.Segmenter.WarnSubtaskCount,
				WarnContentLength: cfg.Segmenter.WarnContentLength,
			})
			for _, msg := range validation.Errors {
				fmt.Fprintf(out, "error: %s\n", msg)
			}
			for _, msg := range validation.Warnings {
				fmt.Fprintf(out, "warning: %s\n", msg)
			}
			return nil
		},
	}
}
