// Package dbops drives already-running database engines through their
// command-line clients to create, populate and snapshot dataset
// databases.
package dbops

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// Runner runs one external command to completion. The exit status is
// the sole success/failure signal: a non-nil error means a non-zero
// exit or a failure to start. The narrow surface keeps the orchestrator
// testable without a real engine.
type Runner interface {
	Run(ctx context.Context, argv []string, stdin io.Reader, stdout io.Writer) error
}

// ExecRunner runs commands with os/exec. Stderr passes through to the
// process stderr so client diagnostics stay visible.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, argv []string, stdin io.Reader, stdout io.Writer) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
