package distro

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/s0undt3ch/salt-bootstrap/internal/subprocess"
)

// DefaultCommandTimeout bounds each command an install runs.
const DefaultCommandTimeout = 5 * time.Minute

// CommandRunner runs commands through the subprocess engine in check mode,
// so a non-zero exit is an error.
type CommandRunner struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Stdout       io.Writer
	Stderr       io.Writer
	TempDir      string
	Logger       *slog.Logger
}

func (r *CommandRunner) Run(ctx context.Context, args ...string) (*subprocess.Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return subprocess.Run(ctx, subprocess.Command{Args: args}, subprocess.Options{
		Timeout:      timeout,
		Check:        true,
		PollInterval: r.PollInterval,
		Stdout:       r.Stdout,
		Stderr:       r.Stderr,
		TempDir:      r.TempDir,
		Logger:       r.Logger,
	})
}
