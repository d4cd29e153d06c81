package subprocess

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/s0undt3ch/salt-bootstrap/internal/logbuf"
)

// ErrConfiguration is returned, wrapped with detail, when a Command is
// rejected before anything is spawned.
var ErrConfiguration = errors.New("invalid command configuration")

// tailLines is how much captured output an error message carries.
const tailLines = 10

// SpawnError reports that the executable could not be launched at all.
type SpawnError struct {
	Args []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting %q: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TimeoutError reports that a command outlived its timeout and was killed.
// Stdout and Stderr hold whatever was captured before the kill.
type TimeoutError struct {
	Args    []string
	Timeout time.Duration
	Stdout  string
	Stderr  string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("command %q timed out after %s", strings.Join(e.Args, " "), e.Timeout)
	return msg + outputTail(e.Stdout, e.Stderr)
}

// ExitError reports a non-zero exit code from a run in check mode.
type ExitError struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit code %d", strings.Join(e.Args, " "), e.ExitCode)
	return msg + outputTail(e.Stdout, e.Stderr)
}

// InterruptedError reports that the run's context ended while the command
// was still running. The child has been killed. Err is the context's error;
// Stdout and Stderr hold what was captured up to the kill, and are empty
// when the context was done before anything was spawned.
type InterruptedError struct {
	Args   []string
	Err    error
	Stdout string
	Stderr string
}

func (e *InterruptedError) Error() string {
	msg := fmt.Sprintf("command %q interrupted: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stdout == "" && e.Stderr == "" {
		return msg
	}
	return msg + outputTail(e.Stdout, e.Stderr)
}

func (e *InterruptedError) Unwrap() error { return e.Err }

// outputTail renders the last lines of stderr, falling back to stdout when
// stderr is empty.
func outputTail(stdout, stderr string) string {
	name, lines := "stderr", logbuf.Tail(stderr, tailLines)
	if len(lines) == 0 {
		name, lines = "stdout", logbuf.Tail(stdout, tailLines)
	}
	if len(lines) == 0 {
		return " (no output captured)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "; last %s:", name)
	for _, line := range lines {
		b.WriteString("\n    ")
		b.WriteString(line)
	}
	return b.String()
}
