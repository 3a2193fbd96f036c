package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlstage/internal/cli/config"
	"github.com/leapstack-labs/sqlstage/internal/logging"
	"github.com/leapstack-labs/sqlstage/internal/manifest"
)

// NewDatasetsCommand creates the datasets command.
func NewDatasetsCommand() *cobra.Command {
	var force bool
	var names []string

	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Download and analyze Text2SQL question sets",
		Long: `Download the question-set JSON files of the known benchmark datasets,
score each query's complexity and write an analysis manifest.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDatasets(cmd, names, force)
		},
	}

	cmd.Flags().StringSliceVar(&names, "datasets", nil, "Question sets to download (default: all known)")
	cmd.Flags().BoolVar(&force, "force-download", false, "Redownload question sets even if cached")

	return cmd
}

func runDatasets(cmd *cobra.Command, names []string, force bool) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	sources := manifest.BuiltinQuestionSources()
	if len(names) == 0 {
		for name := range sources {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	dataDir := filepath.Join(cfg.DatasetsDir, "data")
	downloader := manifest.NewDownloader(dataDir, logger)

	var reports []manifest.DatasetReport
	failed := 0
	for _, name := range names {
		src, ok := sources[name]
		if !ok {
			return fmt.Errorf("unknown dataset %q (available: %v)", name, sortedNames(sources))
		}

		entries, path, err := downloader.Download(ctx, name, src, force)
		if err != nil {
			logger.Error("question set download failed", "dataset", name, "error", err)
			failed++
			continue
		}

		reports = append(reports, manifest.DatasetReport{
			Name:        name,
			URL:         src.URL,
			Description: src.Description,
			File:        path,
			Analysis:    manifest.Analyze(entries, name),
		})
	}

	manifestPath := filepath.Join(cfg.DatasetsDir, "manifest.json")
	if err := manifest.WriteManifest(manifestPath, reports); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	renderAnalysis(cmd.OutOrStdout(), reports)
	fmt.Fprintf(cmd.OutOrStdout(), "Manifest: %s\n", manifestPath)

	if failed > 0 {
		return fmt.Errorf("%d question set(s) failed to download", failed)
	}
	return nil
}

func renderAnalysis(w io.Writer, reports []manifest.DatasetReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Dataset", "Questions", "SQL Key", "Simple", "Medium", "Complex"})
	for _, r := range reports {
		t.AppendRow(table.Row{
			r.Name,
			r.Total,
			r.SQLKey,
			r.Complexity[manifest.ComplexitySimple],
			r.Complexity[manifest.ComplexityMedium],
			r.Complexity[manifest.ComplexityComplex],
		})
	}
	t.Render()
}

func sortedNames(sources map[string]manifest.QuestionSource) []string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
