package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlstage/internal/cli/config"
	"github.com/leapstack-labs/sqlstage/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent bootstrap runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			store := state.NewSQLiteStore()
			if err := openStore(store, cfg.StatePath); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Run", "Engines", "Datasets", "Status", "Started", "Error"})
			for _, run := range runs {
				t.AppendRow(table.Row{
					run.ID[:8],
					run.Engines,
					run.Datasets,
					string(run.Status),
					run.StartedAt.Format("2006-01-02 15:04:05"),
					truncate(run.Error, 40),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to show")
	return cmd
}
