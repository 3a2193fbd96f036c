package bootstrap

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlstage/internal/testutil"
	"github.com/leapstack-labs/sqlstage/pkg/core"
)

type stubResolver struct {
	paths  map[string]string
	errs   map[string]error
	calls  []string
	forced []bool
}

func (s *stubResolver) Resolve(_ context.Context, dataset string, force bool) (string, error) {
	s.calls = append(s.calls, dataset)
	s.forced = append(s.forced, force)
	if err, ok := s.errs[dataset]; ok {
		return "", err
	}
	return s.paths[dataset], nil
}

type stubOrchestrator struct {
	ensured    []string
	imported   []string
	dumped     []string
	importErrs map[string]error
	ensureErrs map[string]error
}

func pairKey(engine core.Engine, db string) string {
	return engine.Name + "/" + db
}

func (s *stubOrchestrator) EnsureDatabase(_ context.Context, engine core.Engine, _ core.Credentials, name string, _ bool) error {
	key := pairKey(engine, name)
	s.ensured = append(s.ensured, key)
	return s.ensureErrs[key]
}

func (s *stubOrchestrator) ImportSQLFile(_ context.Context, engine core.Engine, _ core.Credentials, dbName, _ string) error {
	key := pairKey(engine, dbName)
	s.imported = append(s.imported, key)
	return s.importErrs[key]
}

func (s *stubOrchestrator) DumpSchema(_ context.Context, engine core.Engine, _ core.Credentials, dbName string) (string, error) {
	key := pairKey(engine, dbName)
	s.dumped = append(s.dumped, key)
	return "/schemas/" + key + ".schema.sql", nil
}

type stubRecorder struct {
	outcomes []core.PairOutcome
}

func (s *stubRecorder) RecordOutcome(_ string, o core.PairOutcome) error {
	s.outcomes = append(s.outcomes, o)
	return nil
}

func testEngines() []core.Engine {
	return []core.Engine{
		{Name: "mysql", Container: "text2sql-mysql", Client: "mysql", DumpTool: "mysqldump"},
		{Name: "mariadb", Container: "text2sql-mariadb", Client: "mariadb", DumpTool: "mariadb-dump"},
	}
}

func testDriverCreds() map[string]core.Credentials {
	return map[string]core.Credentials{
		"mysql":   {RootPassword: "root123"},
		"mariadb": {RootPassword: "root123"},
	}
}

func TestDriverHappyPath(t *testing.T) {
	resolver := &stubResolver{paths: map[string]string{"imdb": "/cache/imdb.sql", "atis": "/cache/atis.sql"}}
	orch := &stubOrchestrator{}
	recorder := &stubRecorder{}
	d := NewDriver(resolver, orch, recorder, testutil.NewTestLogger(t))

	outcomes := d.Run(context.Background(), "run-1", testEngines(), testDriverCreds(), []string{"imdb", "atis"}, Options{})

	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		assert.Equal(t, core.PairImported, o.Status)
		assert.NotEmpty(t, o.Schema)
	}
	assert.Len(t, orch.imported, 4)
	assert.Len(t, orch.dumped, 4)
	assert.Len(t, recorder.outcomes, 4)
}

func TestDriverNoSourceSkipsPair(t *testing.T) {
	resolver := &stubResolver{paths: map[string]string{}}
	orch := &stubOrchestrator{}
	d := NewDriver(resolver, orch, nil, testutil.NewTestLogger(t))

	outcomes := d.Run(context.Background(), "", testEngines()[:1], testDriverCreds(), []string{"geography"}, Options{})

	require.Len(t, outcomes, 1)
	assert.Equal(t, core.PairNoSource, outcomes[0].Status)
	assert.Empty(t, orch.ensured, "no database work without a staged file")
}

func TestDriverResolveFailureContinues(t *testing.T) {
	resolver := &stubResolver{
		paths: map[string]string{"atis": "/cache/atis.sql"},
		errs:  map[string]error{"imdb": fmt.Errorf("wrapped: %w", core.ErrConfirmToken)},
	}
	orch := &stubOrchestrator{}
	d := NewDriver(resolver, orch, nil, testutil.NewTestLogger(t))

	outcomes := d.Run(context.Background(), "", testEngines()[:1], testDriverCreds(), []string{"imdb", "atis"}, Options{})

	require.Len(t, outcomes, 2)
	assert.Equal(t, core.PairResolveFailed, outcomes[0].Status)
	assert.Equal(t, core.PairImported, outcomes[1].Status, "resolution failure must not stop the matrix")
}

func TestDriverImportFailureAbortsEngineOnly(t *testing.T) {
	resolver := &stubResolver{paths: map[string]string{"imdb": "/cache/imdb.sql", "atis": "/cache/atis.sql"}}
	orch := &stubOrchestrator{
		importErrs: map[string]error{
			"mysql/imdb": fmt.Errorf("%w: exit status 1", core.ErrImportFailed),
		},
	}
	d := NewDriver(resolver, orch, nil, testutil.NewTestLogger(t))

	outcomes := d.Run(context.Background(), "", testEngines(), testDriverCreds(), []string{"imdb", "atis"}, Options{})

	// mysql aborts after imdb; mariadb still runs both datasets.
	require.Len(t, outcomes, 3)
	assert.Equal(t, core.PairImportFailed, outcomes[0].Status)
	assert.Equal(t, "mysql", outcomes[0].Engine)
	assert.Equal(t, "mariadb", outcomes[1].Engine)
	assert.Equal(t, core.PairImported, outcomes[1].Status)
	assert.Equal(t, core.PairImported, outcomes[2].Status)
	assert.NotContains(t, orch.imported, "mysql/atis", "remaining datasets for the failed engine must be skipped")
}

func TestDriverUnreadableStagedFileContinues(t *testing.T) {
	resolver := &stubResolver{paths: map[string]string{"imdb": "/cache/imdb.sql", "atis": "/cache/atis.sql"}}
	orch := &stubOrchestrator{
		importErrs: map[string]error{
			"mysql/imdb": fmt.Errorf("opening /cache/imdb.sql: %w", os.ErrNotExist),
		},
	}
	d := NewDriver(resolver, orch, nil, testutil.NewTestLogger(t))

	outcomes := d.Run(context.Background(), "", testEngines(), testDriverCreds(), []string{"imdb", "atis"}, Options{})

	// A missing staged file is local to the pair, so the engine keeps
	// going instead of aborting like a client failure would.
	require.Len(t, outcomes, 4)
	assert.Equal(t, core.PairStageFailed, outcomes[0].Status)
	assert.True(t, outcomes[0].Failed())
	assert.Equal(t, core.PairImported, outcomes[1].Status)
	assert.Contains(t, orch.imported, "mysql/atis")
}

func TestDriverAdminFailureContinues(t *testing.T) {
	resolver := &stubResolver{paths: map[string]string{"imdb": "/cache/imdb.sql", "atis": "/cache/atis.sql"}}
	orch := &stubOrchestrator{
		ensureErrs: map[string]error{
			"mysql/imdb": fmt.Errorf("%w: exit status 1", core.ErrDBAdmin),
		},
	}
	d := NewDriver(resolver, orch, nil, testutil.NewTestLogger(t))

	outcomes := d.Run(context.Background(), "", testEngines()[:1], testDriverCreds(), []string{"imdb", "atis"}, Options{})

	require.Len(t, outcomes, 2)
	assert.Equal(t, core.PairAdminFailed, outcomes[0].Status)
	assert.Equal(t, core.PairImported, outcomes[1].Status)
	assert.NotContains(t, orch.imported, "mysql/imdb")
}

func TestDriverSkipSchemaDump(t *testing.T) {
	resolver := &stubResolver{paths: map[string]string{"imdb": "/cache/imdb.sql"}}
	orch := &stubOrchestrator{}
	d := NewDriver(resolver, orch, nil, testutil.NewTestLogger(t))

	outcomes := d.Run(context.Background(), "", testEngines()[:1], testDriverCreds(), []string{"imdb"}, Options{SkipSchemaDump: true})

	require.Len(t, outcomes, 1)
	assert.Equal(t, core.PairImported, outcomes[0].Status)
	assert.Empty(t, outcomes[0].Schema)
	assert.Empty(t, orch.dumped)
}

func TestDriverForceFlagPropagates(t *testing.T) {
	resolver := &stubResolver{paths: map[string]string{"imdb": "/cache/imdb.sql"}}
	d := NewDriver(resolver, &stubOrchestrator{}, nil, testutil.NewTestLogger(t))

	d.Run(context.Background(), "", testEngines()[:1], testDriverCreds(), []string{"imdb"}, Options{Force: true})

	require.Len(t, resolver.forced, 1)
	assert.True(t, resolver.forced[0])
}
