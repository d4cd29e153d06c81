// Package subprocess runs external commands while capturing their output,
// mirroring it live to the console and enforcing wall-clock timeouts.
//
// Output is drained from non-blocking pipes at a fixed cadence by the
// goroutine that called Run, so a stuck child never stalls the caller past
// its deadline. Captured output is kept in memory up to a threshold and
// spooled to a temporary file beyond it.
package subprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/s0undt3ch/salt-bootstrap/internal/logbuf"
)

// heartbeatInterval is how often a long-running command is logged.
const heartbeatInterval = 30 * time.Second

// recentLines is how many output lines the heartbeat keeps track of.
const recentLines = 3

// Result holds the outcome of a completed run.
type Result struct {
	RunID    string        // unique identifier for this run
	Args     []string      // the command as run
	ExitCode int           // exit status, or the negated signal number
	Stdout   string        // captured stdout, newlines normalized
	Stderr   string        // captured stderr, newlines normalized
	Duration time.Duration // wall-clock time from spawn to exit
}

// Run starts c and polls it until it exits, its timeout passes, or ctx is
// done. Captured output is mirrored to opts.Stdout/opts.Stderr as it
// arrives.
//
// Failures are reported as *SpawnError, *TimeoutError, *ExitError (only
// with opts.Check), *InterruptedError, or an error wrapping
// ErrConfiguration. The child is killed and every pipe and temporary file
// released before Run returns.
func Run(ctx context.Context, c Command, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &InterruptedError{Args: c.Args, Err: err}
	}

	runID := uuid.New().String()
	logger := opts.logger().With("run_id", runID)

	logger.Info("running command", "cmd", c.String())

	start := time.Now()
	dl := newDeadline(start, opts.Timeout)

	recent := logbuf.New(recentLines)
	opts.Stdout = io.MultiWriter(opts.stdoutSink(), recent)
	opts.Stderr = io.MultiWriter(opts.stderrSink(), recent)

	h, err := Start(c, opts)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	logger.Debug("command started", "pid", h.Pid())

	input := c.Input
	interval := opts.pollInterval()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	heartbeat := rate.Sometimes{Interval: heartbeatInterval}
	// The first Do always runs; spend it so the heartbeat starts one
	// interval from now.
	heartbeat.Do(func() {})

	var code int
	for {
		if h.stdin != nil {
			input, err = feed(h, input)
			if err != nil {
				h.Kill()
				return nil, err
			}
		}

		var exited bool
		code, exited, err = h.Poll()
		if err != nil {
			h.Kill()
			return nil, fmt.Errorf("reading output of %q: %w", c.String(), err)
		}
		if exited {
			break
		}

		if dl.expired(time.Now()) {
			return nil, timedOut(h, c, dl, logger)
		}

		heartbeat.Do(func() {
			logger.Info("command still running", "cmd", c.String(),
				"elapsed", time.Since(start).Round(time.Second), "recent_output", recent.Lines())
		})

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return nil, interrupted(ctx, h, c, logger)
		case <-timer.C:
		}
	}

	stdout, stderr, err := h.Finalize()
	if err != nil {
		return nil, fmt.Errorf("collecting output of %q: %w", c.String(), err)
	}
	if werr := h.WaitErr(); werr != nil {
		logger.Debug("command reaped with error", "error", werr)
	}

	res := &Result{
		RunID:    runID,
		Args:     append([]string(nil), c.Args...),
		ExitCode: code,
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: time.Since(start),
	}
	logger.Debug("command finished", "exit_code", code, "duration", res.Duration)

	if opts.Check && code != 0 {
		return nil, &ExitError{Args: res.Args, ExitCode: code, Stdout: stdout, Stderr: stderr}
	}
	return res, nil
}

// feed offers the remaining input to stdin and closes it once everything
// has been accepted or the child has stopped reading.
func feed(h *ProcessHandle, input []byte) ([]byte, error) {
	if len(input) > 0 {
		n, err := h.Send(input)
		switch {
		case errors.Is(err, io.ErrClosedPipe):
			return nil, nil
		case err != nil:
			return input, fmt.Errorf("writing input: %w", err)
		}
		input = input[n:]
	}
	if len(input) == 0 {
		return nil, h.CloseStdin()
	}
	return input, nil
}

// interrupted kills the child and gathers what it wrote without waiting
// for it to be reaped; the waiter goroutine does that.
func interrupted(ctx context.Context, h *ProcessHandle, c Command, logger *slog.Logger) error {
	if err := h.Kill(); err != nil {
		return err
	}
	logger.Warn("command interrupted", "cmd", c.String(), "reason", ctx.Err())
	stdout, stderr, err := h.Abandon()
	if err != nil {
		logger.Debug("collecting output after interrupt", "error", err)
	}
	return &InterruptedError{
		Args:   append([]string(nil), c.Args...),
		Err:    ctx.Err(),
		Stdout: stdout,
		Stderr: stderr,
	}
}

// timedOut kills the child, collects whatever it wrote and builds the
// timeout failure.
func timedOut(h *ProcessHandle, c Command, dl deadline, logger *slog.Logger) error {
	if err := h.Kill(); err != nil {
		return err
	}
	stdout, stderr, err := h.Finalize()
	if err != nil {
		return fmt.Errorf("collecting output of %q after timeout: %w", c.String(), err)
	}
	logger.Warn("command timed out", "cmd", c.String(), "timeout", dl.timeout)
	return &TimeoutError{
		Args:    append([]string(nil), c.Args...),
		Timeout: dl.timeout,
		Stdout:  stdout,
		Stderr:  stderr,
	}
}
