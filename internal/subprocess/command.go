package subprocess

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultPollInterval is the pause between drains of a running command.
	// It bounds how stale the live output can be.
	DefaultPollInterval = 25 * time.Millisecond

	// DefaultSpoolThreshold is how much captured output a stream keeps in
	// memory before spilling to a temporary file.
	DefaultSpoolThreshold = 512000
)

// Command describes a process to run. It must not be modified once a run
// has started.
type Command struct {
	// Args is the program followed by its arguments. Args[0] is resolved
	// via PATH.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds overrides merged on top of the current environment.
	Env map[string]string
	// Input is written to the process's stdin, which is closed once all
	// of it has been accepted.
	Input []byte

	// Stdin is handed to the process as-is. It cannot be combined with Input.
	Stdin io.Reader
	// Stdout and Stderr must be nil: the engine always owns both streams so
	// it can capture and mirror them. Use Options.Stdout/Options.Stderr to
	// choose where the live copy goes.
	Stdout io.Writer
	Stderr io.Writer
}

// String returns the command line joined by spaces.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

func (c Command) validate() error {
	if len(c.Args) == 0 || c.Args[0] == "" {
		return fmt.Errorf("%w: empty command", ErrConfiguration)
	}
	if c.Stdout != nil || c.Stderr != nil {
		return fmt.Errorf("%w: stdout and stderr are owned by the runner and cannot be redirected", ErrConfiguration)
	}
	if c.Input != nil && c.Stdin != nil {
		return fmt.Errorf("%w: stdin and input cannot both be set", ErrConfiguration)
	}
	return nil
}

// environ returns the process environment with c.Env applied, or nil when
// there are no overrides so the child inherits ours unchanged.
func (c Command) environ() []string {
	if len(c.Env) == 0 {
		return nil
	}

	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for k, v := range c.Env {
		merged[k] = v
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// Options controls a single run. Nothing here is shared between runs.
type Options struct {
	// Timeout bounds the wall-clock duration of the run. Zero disables it.
	Timeout time.Duration
	// Check turns a non-zero exit code into an *ExitError.
	Check bool
	// PollInterval overrides DefaultPollInterval.
	PollInterval time.Duration

	// Stdout and Stderr receive a live copy of everything captured.
	// Nil means the current process's own stdout/stderr; use io.Discard
	// to silence them.
	Stdout io.Writer
	Stderr io.Writer

	// SpoolThreshold overrides DefaultSpoolThreshold.
	SpoolThreshold int
	// TempDir is where spilled output is written. Empty means os.TempDir.
	TempDir string

	Logger *slog.Logger
}

func (o Options) pollInterval() time.Duration {
	if o.PollInterval > 0 {
		return o.PollInterval
	}
	return DefaultPollInterval
}

func (o Options) spoolThreshold() int {
	if o.SpoolThreshold > 0 {
		return o.SpoolThreshold
	}
	return DefaultSpoolThreshold
}

func (o Options) stdoutSink() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

func (o Options) stderrSink() io.Writer {
	if o.Stderr != nil {
		return o.Stderr
	}
	return os.Stderr
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.With("component", "subprocess")
}
