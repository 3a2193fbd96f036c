package commands

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// renderOutcomes prints the per-pair bootstrap results as a table.
func renderOutcomes(w io.Writer, outcomes []core.PairOutcome) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Engine", "Dataset", "Status", "Duration", "Schema", "Error"})

	for _, o := range outcomes {
		t.AppendRow(table.Row{
			o.Engine,
			o.Dataset,
			string(o.Status),
			o.Duration.Round(time.Millisecond).String(),
			o.Schema,
			truncate(o.Err, 60),
		})
	}
	t.Render()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
