package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/s0undt3ch/salt-bootstrap/internal/config"
	"github.com/s0undt3ch/salt-bootstrap/internal/subprocess"
)

// exitCode logs err and picks the process exit status for it. An
// interrupted run exits cleanly; a command that failed in check mode passes
// its own exit code through.
func exitCode(err error, cfg *config.Config) int {
	var (
		interrupted *subprocess.InterruptedError
		timedOut    *subprocess.TimeoutError
		failed      *subprocess.ExitError
	)

	switch {
	case err == nil:
		return 0
	case errors.As(err, &interrupted), errors.Is(err, context.Canceled):
		slog.Warn("interrupted, exiting")
		return 0
	case errors.As(err, &timedOut):
		slog.Error(err.Error())
		return 1
	case errors.As(err, &failed):
		slog.Error(err.Error())
		return childStatus(failed.ExitCode)
	default:
		slog.Error(err.Error())
		if cfg != nil {
			slog.Debug("see the log file for details", "path", cfg.LogFileOrDefault())
		}
		return 1
	}
}

// childStatus maps a child's exit code onto a valid status for this
// process, using the shell's 128+signal convention for signal deaths.
func childStatus(code int) int {
	switch {
	case code < 0:
		return 128 - code
	case code == 0 || code > 255:
		return 1
	default:
		return code
	}
}
