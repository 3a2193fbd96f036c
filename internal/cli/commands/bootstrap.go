package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlstage/internal/archive"
	"github.com/leapstack-labs/sqlstage/internal/bootstrap"
	"github.com/leapstack-labs/sqlstage/internal/cli/config"
	"github.com/leapstack-labs/sqlstage/internal/dbops"
	"github.com/leapstack-labs/sqlstage/internal/fetch"
	"github.com/leapstack-labs/sqlstage/internal/logging"
	"github.com/leapstack-labs/sqlstage/internal/resolve"
	"github.com/leapstack-labs/sqlstage/internal/state"
	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// BootstrapOptions holds options for the bootstrap command.
type BootstrapOptions struct {
	Datasets      []string
	Only          string
	ResetDB       bool
	ForceDownload bool
	NoSchemaDump  bool
	NoHistory     bool
}

// NewBootstrapCommand creates the bootstrap command.
func NewBootstrapCommand() *cobra.Command {
	opts := &BootstrapOptions{}

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Stage dataset SQL dumps and import them into running engines",
		Long: `Download SQL dumps (if a source is configured), import them into
MySQL/MariaDB and write structure-only schema snapshots.

Resolution failures skip to the next dataset; an import failure aborts
the remaining datasets for that engine.`,
		Example: `  # Bootstrap the default datasets into both engines
  sqlstage bootstrap

  # Rebuild the imdb database on mysql from scratch
  sqlstage bootstrap --only mysql --datasets imdb --reset-db --force-download`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBootstrap(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Datasets, "datasets", nil, "Datasets to import (default: academic,imdb,yelp,advising,atis)")
	cmd.Flags().StringVar(&opts.Only, "only", "", "Only run for one engine (mysql|mariadb)")
	cmd.Flags().BoolVar(&opts.ResetDB, "reset-db", false, "Drop dataset databases before importing")
	cmd.Flags().BoolVar(&opts.ForceDownload, "force-download", false, "Redownload and re-extract SQL assets even if cached")
	cmd.Flags().BoolVar(&opts.NoSchemaDump, "no-schema-dump", false, "Skip schema snapshot extraction")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record the run in the history database")

	return cmd
}

func runBootstrap(cmd *cobra.Command, opts *BootstrapOptions) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	engines, err := selectEngines(cfg.Engines, opts.Only)
	if err != nil {
		return err
	}
	datasets := opts.Datasets
	if len(datasets) == 0 {
		datasets = cfg.Datasets
	}
	if len(datasets) == 0 {
		datasets = resolve.DefaultDatasets
	}

	layout := resolve.DefaultLayout(cfg.CacheDir)
	if err := layout.EnsureRoots(); err != nil {
		// No writable cache means no sensible degraded mode.
		return err
	}

	client := fetch.NewClient(logger)
	stager := archive.NewStager(logger)
	resolver := resolve.NewResolver(layout, resolve.BuiltinSources(), resolve.BuiltinBundles(), client, stager, logger)
	orch := dbops.NewOrchestrator(dbops.ExecRunner{}, layout.Schemas, logger)

	var (
		recorder bootstrap.Recorder
		store    *state.SQLiteStore
		runID    string
	)
	if !opts.NoHistory {
		store = state.NewSQLiteStore()
		if err := openStore(store, cfg.StatePath); err != nil {
			logger.Warn("run history disabled", "error", err)
			store = nil
		}
	}
	if store != nil {
		defer func() { _ = store.Close() }()
		if run, err := store.CreateRun(engineNames(engines), datasets); err != nil {
			logger.Warn("could not create history run", "error", err)
		} else {
			runID = run.ID
			recorder = store
		}
	}

	driver := bootstrap.NewDriver(resolver, orch, recorder, logger)
	outcomes := driver.Run(ctx, runID, engines, cfg.Credentials(), datasets, bootstrap.Options{
		Reset:          opts.ResetDB,
		Force:          opts.ForceDownload,
		SkipSchemaDump: opts.NoSchemaDump,
	})

	renderOutcomes(cmd.OutOrStdout(), outcomes)

	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
	}
	if store != nil && runID != "" {
		status := state.RunStatusCompleted
		msg := ""
		if failed > 0 {
			status = state.RunStatusFailed
			msg = fmt.Sprintf("%d pair(s) failed", failed)
		}
		if err := store.CompleteRun(runID, status, msg); err != nil {
			logger.Warn("could not complete history run", "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("bootstrap finished with %d failed pair(s)", failed)
	}
	return nil
}

func openStore(store *state.SQLiteStore, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return store.Open(path)
}

func selectEngines(configured []string, only string) ([]core.Engine, error) {
	builtin := dbops.BuiltinEngines()
	names := configured
	if only != "" {
		names = []string{only}
	}

	engines := make([]core.Engine, 0, len(names))
	for _, name := range names {
		engine, ok := builtin[name]
		if !ok {
			return nil, fmt.Errorf("unknown engine %q (available: mysql, mariadb)", name)
		}
		engines = append(engines, engine)
	}
	return engines, nil
}

func engineNames(engines []core.Engine) []string {
	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, e.Name)
	}
	return names
}
