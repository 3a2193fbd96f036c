// Package bootstrap iterates engine × dataset pairs, staging each
// dataset's SQL and importing it into the engine.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// Resolver stages a dataset's SQL and returns its canonical path, or
// ("", nil) when no source is configured.
type Resolver interface {
	Resolve(ctx context.Context, dataset string, force bool) (string, error)
}

// Orchestrator drives one running engine.
type Orchestrator interface {
	EnsureDatabase(ctx context.Context, engine core.Engine, creds core.Credentials, name string, reset bool) error
	ImportSQLFile(ctx context.Context, engine core.Engine, creds core.Credentials, dbName, sqlFile string) error
	DumpSchema(ctx context.Context, engine core.Engine, creds core.Credentials, dbName string) (string, error)
}

// Recorder persists pair outcomes. Failures are logged, never fatal.
type Recorder interface {
	RecordOutcome(runID string, o core.PairOutcome) error
}

// Options control a bootstrap run.
type Options struct {
	// Reset drops each dataset database before importing.
	Reset bool

	// Force re-downloads and re-extracts assets even when cached.
	Force bool

	// SkipSchemaDump disables the best-effort schema snapshot.
	SkipSchemaDump bool
}

// Driver runs the full bootstrap matrix sequentially: one dataset at a
// time, one engine at a time, no overlapping transfers or subprocesses.
type Driver struct {
	resolver Resolver
	orch     Orchestrator
	recorder Recorder // optional
	logger   *slog.Logger
}

// NewDriver creates a driver. recorder may be nil.
func NewDriver(resolver Resolver, orch Orchestrator, recorder Recorder, logger *slog.Logger) *Driver {
	return &Driver{resolver: resolver, orch: orch, recorder: recorder, logger: logger}
}

// Run bootstraps every dataset into every engine and returns one outcome
// per attempted pair. Resolution and admin failures are logged and the
// matrix continues; an import failure aborts the remaining datasets for
// that engine only, since it signals a systemic problem (bad
// credentials, engine down, syntax incompatibility) rather than a
// per-dataset issue.
func (d *Driver) Run(ctx context.Context, runID string, engines []core.Engine, creds map[string]core.Credentials, datasets []string, opts Options) []core.PairOutcome {
	var outcomes []core.PairOutcome

	for _, engine := range engines {
		d.logger.Info("bootstrapping engine", "engine", engine.Name, "datasets", len(datasets))
		engineCreds := creds[engine.Name]

		for _, dataset := range datasets {
			outcome := d.runPair(ctx, engine, engineCreds, dataset, opts)
			outcomes = append(outcomes, outcome)
			d.record(runID, outcome)

			if outcome.Status == core.PairImportFailed {
				d.logger.Error("import failed, aborting remaining datasets for engine",
					"engine", engine.Name, "dataset", dataset, "error", outcome.Err)
				break
			}
		}
	}
	return outcomes
}

func (d *Driver) runPair(ctx context.Context, engine core.Engine, creds core.Credentials, dataset string, opts Options) (outcome core.PairOutcome) {
	start := time.Now()
	outcome = core.PairOutcome{Engine: engine.Name, Dataset: dataset}
	defer func() { outcome.Duration = time.Since(start) }()

	sqlPath, err := d.resolver.Resolve(ctx, dataset, opts.Force)
	if err != nil {
		d.logger.Error("asset resolution failed", "dataset", dataset, "error", err)
		outcome.Status = core.PairResolveFailed
		outcome.Err = err.Error()
		return outcome
	}
	if sqlPath == "" {
		outcome.Status = core.PairNoSource
		return outcome
	}
	outcome.SQLPath = sqlPath

	if err := d.orch.EnsureDatabase(ctx, engine, creds, dataset, opts.Reset); err != nil {
		d.logger.Error("database setup failed", "engine", engine.Name, "dataset", dataset, "error", err)
		outcome.Status = core.PairAdminFailed
		outcome.Err = err.Error()
		return outcome
	}

	if err := d.orch.ImportSQLFile(ctx, engine, creds, dataset, sqlPath); err != nil {
		outcome.Err = err.Error()
		if errors.Is(err, core.ErrImportFailed) {
			outcome.Status = core.PairImportFailed
		} else {
			// The staged file could not be read; a local problem with
			// this pair, not a client failure inside the engine.
			outcome.Status = core.PairStageFailed
		}
		return outcome
	}
	outcome.Status = core.PairImported
	d.logger.Info("import complete", "engine", engine.Name, "db", dataset)

	if !opts.SkipSchemaDump {
		schemaPath, err := d.orch.DumpSchema(ctx, engine, creds, dataset)
		if err != nil {
			// Snapshotting is diagnostics, not part of import
			// correctness.
			d.logger.Warn("schema snapshot failed", "engine", engine.Name, "db", dataset, "error", err)
		} else {
			outcome.Schema = schemaPath
		}
	}
	return outcome
}

func (d *Driver) record(runID string, o core.PairOutcome) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordOutcome(runID, o); err != nil {
		d.logger.Warn("could not record outcome", "engine", o.Engine, "dataset", o.Dataset, "error", err)
	}
}
