package dbops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// createCollation is applied to every dataset database so imports behave
// identically across engines.
const createCollation = "CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci"

// Orchestrator executes administrative, import and dump commands against
// a running engine. All subprocesses go through the Runner.
type Orchestrator struct {
	runner    Runner
	schemaDir string
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator writing schema snapshots under
// schemaDir/<engine>/<db>.schema.sql.
func NewOrchestrator(runner Runner, schemaDir string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{runner: runner, schemaDir: schemaDir, logger: logger}
}

// EnsureDatabase drops (when reset) and creates the named database.
// Both statements are idempotent. A non-zero exit from the client is
// fatal for the (engine, dataset) pair.
func (o *Orchestrator) EnsureDatabase(ctx context.Context, engine core.Engine, creds core.Credentials, name string, reset bool) error {
	if reset {
		o.logger.Info("dropping database", "engine", engine.Name, "db", name)
		if err := o.adminExec(ctx, engine, creds, fmt.Sprintf("DROP DATABASE IF EXISTS `%s`;", name)); err != nil {
			return err
		}
	}
	o.logger.Info("creating database", "engine", engine.Name, "db", name)
	return o.adminExec(ctx, engine, creds, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` %s;", name, createCollation))
}

// adminExec runs a single raw statement through the engine client.
func (o *Orchestrator) adminExec(ctx context.Context, engine core.Engine, creds core.Credentials, stmt string) error {
	argv := append(o.clientArgv(engine, creds), "-e", stmt)
	if err := o.runner.Run(ctx, argv, nil, nil); err != nil {
		return fmt.Errorf("%w on %s: %v", core.ErrDBAdmin, engine.Name, err)
	}
	return nil
}

// ImportSQLFile feeds sqlFile to the engine client targeted at dbName.
// A non-zero exit is core.ErrImportFailed; the database may be left
// partially imported and must be reset on the next attempt.
func (o *Orchestrator) ImportSQLFile(ctx context.Context, engine core.Engine, creds core.Credentials, dbName, sqlFile string) error {
	f, err := os.Open(sqlFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", sqlFile, err)
	}
	defer func() { _ = f.Close() }()

	o.logger.Info("importing sql file", "engine", engine.Name, "db", dbName, "file", filepath.Base(sqlFile))
	argv := append(o.clientArgv(engine, creds), dbName)
	if err := o.runner.Run(ctx, argv, f, nil); err != nil {
		return fmt.Errorf("%w: %s into %s/%s: %v", core.ErrImportFailed, filepath.Base(sqlFile), engine.Name, dbName, err)
	}
	return nil
}

// DumpSchema writes a structure-only snapshot (schema objects, routines
// and triggers, no row data) of dbName and returns the snapshot path.
func (o *Orchestrator) DumpSchema(ctx context.Context, engine core.Engine, creds core.Credentials, dbName string) (string, error) {
	outDir := filepath.Join(o.schemaDir, engine.Name)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(outDir, dbName+".schema.sql")

	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	o.logger.Info("writing schema snapshot", "engine", engine.Name, "db", dbName, "path", outPath)
	argv := []string{
		"docker", "exec", "-i", engine.Container,
		engine.DumpTool, "-uroot", "-p" + creds.RootPassword,
		"--no-data", "--routines", "--triggers",
		dbName,
	}
	if err := o.runner.Run(ctx, argv, nil, f); err != nil {
		return "", fmt.Errorf("schema dump of %s/%s: %w", engine.Name, dbName, err)
	}
	return outPath, nil
}

func (o *Orchestrator) clientArgv(engine core.Engine, creds core.Credentials) []string {
	return []string{
		"docker", "exec", "-i", engine.Container,
		engine.Client, "-uroot", "-p" + creds.RootPassword,
	}
}
