package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptq/internal/services/tasks"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List source repositories available on the task service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := tasks.NewFromConfig(cfg)
			sources, err := client.ListSources(cmd.Context())
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sources available")
				return nil
			}

			rows := make([][]string, 0, len(sources))
			for _, source := range sources {
				repo := "-"
				if source.GitHub != nil {
					repo = source.GitHub.Owner + "/" + source.GitHub.Repo
				}
				rows = append(rows, []string{source.ID, repo})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Repository"},
				rows,
			))
			return nil
		},
	}
}
