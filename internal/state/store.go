// Package state persists bootstrap run history in SQLite.
// Recording is best-effort: the pipeline never fails because history
// could not be written.
package state

import (
	"time"

	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// RunStatus classifies a finished bootstrap run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one driver invocation.
type Run struct {
	ID          string
	Engines     string
	Datasets    string
	Status      RunStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Store records runs and their pair outcomes.
type Store interface {
	CreateRun(engines, datasets []string) (*Run, error)
	RecordOutcome(runID string, o core.PairOutcome) error
	CompleteRun(runID string, status RunStatus, errMsg string) error
	ListRuns(limit int) ([]*Run, error)
	Close() error
}
