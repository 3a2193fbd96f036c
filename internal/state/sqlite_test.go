package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlstage/pkg/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore()
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenMigratesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s := NewSQLiteStore()
	require.NoError(t, s.Open(path))
	run, err := s.CreateRun([]string{"mysql"}, []string{"imdb"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening runs migrations idempotently and keeps existing rows.
	s2 := NewSQLiteStore()
	require.NoError(t, s2.Open(path))
	t.Cleanup(func() { _ = s2.Close() })

	runs, err := s2.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestCreateRun(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun([]string{"mysql", "mariadb"}, []string{"imdb", "atis"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "mysql,mariadb", run.Engines)
	assert.Equal(t, "imdb,atis", run.Datasets)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Nil(t, run.CompletedAt)
}

func TestRecordAndListOutcomes(t *testing.T) {
	s := newTestStore(t)
	run, err := s.CreateRun([]string{"mysql"}, []string{"imdb", "atis"})
	require.NoError(t, err)

	first := core.PairOutcome{
		Engine:   "mysql",
		Dataset:  "imdb",
		Status:   core.PairImported,
		SQLPath:  "/cache/staged-sql/imdb.sql",
		Schema:   "/cache/schemas/mysql/imdb.schema.sql",
		Duration: 1500 * time.Millisecond,
	}
	second := core.PairOutcome{
		Engine:  "mysql",
		Dataset: "atis",
		Status:  core.PairImportFailed,
		Err:     "import failed: exit status 1",
	}
	require.NoError(t, s.RecordOutcome(run.ID, first))
	require.NoError(t, s.RecordOutcome(run.ID, second))

	outcomes, err := s.Outcomes(run.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, first, outcomes[0], "outcomes must round-trip")
	assert.Equal(t, core.PairImportFailed, outcomes[1].Status)
	assert.Equal(t, "import failed: exit status 1", outcomes[1].Err)
}

func TestCompleteRun(t *testing.T) {
	s := newTestStore(t)
	run, err := s.CreateRun([]string{"mysql"}, []string{"imdb"})
	require.NoError(t, err)

	require.NoError(t, s.CompleteRun(run.ID, RunStatusFailed, "1 pair(s) failed"))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunStatusFailed, runs[0].Status)
	assert.Equal(t, "1 pair(s) failed", runs[0].Error)
	require.NotNil(t, runs[0].CompletedAt)
	assert.False(t, runs[0].CompletedAt.Before(runs[0].StartedAt))
}

func TestListRunsOrderAndLimit(t *testing.T) {
	s := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := s.CreateRun([]string{"mysql"}, []string{"imdb"})
		require.NoError(t, err)
		ids = append(ids, run.ID)
		// started_at has second resolution in RFC3339.
		time.Sleep(1100 * time.Millisecond)
	}

	runs, err := s.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID, "newest run first")
	assert.Equal(t, ids[1], runs[1].ID)
}
