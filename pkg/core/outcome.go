package core

import "time"

// PairStatus classifies the outcome of one (engine, dataset) bootstrap pair.
type PairStatus string

const (
	// PairImported means the dataset was staged and imported.
	PairImported PairStatus = "imported"

	// PairNoSource means no SQL source is configured for the dataset.
	// This is a normal state, not a failure.
	PairNoSource PairStatus = "no-source"

	// PairResolveFailed means asset resolution failed; the driver
	// continues with the next pair.
	PairResolveFailed PairStatus = "resolve-failed"

	// PairAdminFailed means drop/create of the database failed.
	PairAdminFailed PairStatus = "admin-failed"

	// PairStageFailed means the staged SQL file could not be read for
	// import. Local to the pair; the driver continues with the next one.
	PairStageFailed PairStatus = "stage-failed"

	// PairImportFailed means the import subprocess failed; the driver
	// aborts the remaining datasets for the engine.
	PairImportFailed PairStatus = "import-failed"
)

// PairOutcome records what happened for one (engine, dataset) pair.
type PairOutcome struct {
	Engine   string
	Dataset  string
	Status   PairStatus
	SQLPath  string
	Schema   string
	Err      string
	Duration time.Duration
}

// Failed reports whether the pair ended in any failure state.
func (o PairOutcome) Failed() bool {
	switch o.Status {
	case PairResolveFailed, PairAdminFailed, PairStageFailed, PairImportFailed:
		return true
	}
	return false
}
