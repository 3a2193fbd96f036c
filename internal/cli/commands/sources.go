package commands

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlstage/internal/resolve"
	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// NewSourcesCommand creates the sources command.
func NewSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured SQL sources and bundles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sources := resolve.BuiltinSources()
			bundles := resolve.BuiltinBundles()

			names := make([]string, 0, len(sources))
			for name := range sources {
				names = append(names, name)
			}
			sort.Strings(names)

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Dataset", "Kind", "Origin", "Staged As"})
			for _, name := range names {
				kind, origin := describeSource(sources[name], bundles)
				t.AppendRow(table.Row{name, kind, origin, sources[name].OutName(name)})
			}
			t.Render()
			return nil
		},
	}
}

func describeSource(src core.Source, bundles map[string]core.Bundle) (kind, origin string) {
	switch s := src.(type) {
	case core.DirectSQL:
		return "direct-sql", s.URL
	case core.ZipMember:
		return "zip-member", fmt.Sprintf("%s!%s", s.URL, s.Member)
	case core.BundleMember:
		origin = fmt.Sprintf("bundle %s, key %s", s.Bundle, s.Key)
		if b, ok := bundles[s.Bundle]; ok {
			origin = fmt.Sprintf("%s (%s)", origin, b.URL)
		}
		return "bundle-member", origin
	default:
		return fmt.Sprintf("%T", src), ""
	}
}
