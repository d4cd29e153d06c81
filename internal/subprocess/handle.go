package subprocess

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// State represents the lifecycle state of a ProcessHandle.
type State string

const (
	StateCreated State = "created"
	StateRunning State = "running"
	StateExited  State = "exited"
	StateClosed  State = "closed"
)

// ProcessHandle owns one spawned process, its pipes and the buffers its
// output is captured into. Output only advances when Poll or Finalize is
// called, so the owner must call Poll repeatedly while the process runs.
//
// A ProcessHandle is not safe for concurrent use; one goroutine drives it.
type ProcessHandle struct {
	args      []string
	cmd       *exec.Cmd
	stdout    *streamPump
	stderr    *streamPump
	stdin     pipe
	state     State
	killed    bool
	finalized bool

	// Written by the waiter goroutine before done is closed.
	done     chan struct{}
	exitCode int
	waitErr  error
}

// Start validates c, wires engine-owned pipes to the child and spawns it.
// The returned handle must be closed.
func Start(c Command, opts Options) (*ProcessHandle, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	h := &ProcessHandle{
		args:  append([]string(nil), c.Args...),
		state: StateCreated,
		done:  make(chan struct{}),
	}

	// Child ends are only needed until the process has inherited them.
	var childEnds []*os.File
	defer func() {
		for _, f := range childEnds {
			f.Close()
		}
	}()

	outPipe, outChild, err := newReadPipe()
	if err != nil {
		return nil, err
	}
	childEnds = append(childEnds, outChild)
	h.stdout = newStreamPump("stdout", outPipe,
		NewSpooledBuffer(opts.spoolThreshold(), opts.TempDir), opts.stdoutSink())

	errPipe, errChild, err := newReadPipe()
	if err != nil {
		h.Close()
		return nil, err
	}
	childEnds = append(childEnds, errChild)
	h.stderr = newStreamPump("stderr", errPipe,
		NewSpooledBuffer(opts.spoolThreshold(), opts.TempDir), opts.stderrSink())

	cmd := exec.Command(c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = c.environ()
	cmd.Stdout = outChild
	cmd.Stderr = errChild

	switch {
	case c.Input != nil:
		inPipe, inChild, err := newWritePipe()
		if err != nil {
			h.Close()
			return nil, err
		}
		childEnds = append(childEnds, inChild)
		h.stdin = inPipe
		cmd.Stdin = inChild
	case c.Stdin != nil:
		cmd.Stdin = c.Stdin
	}

	if err := cmd.Start(); err != nil {
		h.Close()
		return nil, &SpawnError{Args: h.args, Err: err}
	}

	h.cmd = cmd
	h.state = StateRunning

	// Reap in the background; Poll observes the result without blocking.
	go h.wait()

	return h, nil
}

func (h *ProcessHandle) wait() {
	err := h.cmd.Wait()
	h.exitCode = exitCode(h.cmd.ProcessState)
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		h.waitErr = err
	}
	close(h.done)
}

// exitCode mirrors the POSIX convention: the exit status, or the negated
// signal number when the process was killed by a signal.
func exitCode(ps *os.ProcessState) int {
	if ps == nil {
		return -1
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return ps.ExitCode()
}

// Pid returns the process ID of the child.
func (h *ProcessHandle) Pid() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// State returns the current lifecycle state.
func (h *ProcessHandle) State() State {
	return h.state
}

// exited reports, without blocking, whether the process has been reaped.
func (h *ProcessHandle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Poll drains both output pipes once, then reports the exit code if the
// process has finished.
func (h *ProcessHandle) Poll() (code int, exited bool, err error) {
	if h.state == StateClosed {
		return 0, false, errors.New("process handle is closed")
	}
	if _, err := h.drain(); err != nil {
		return 0, false, err
	}
	if !h.exited() {
		return 0, false, nil
	}
	h.state = StateExited
	return h.exitCode, true, nil
}

// drain performs one non-blocking pass over both pumps.
func (h *ProcessHandle) drain() (progressed bool, err error) {
	for _, p := range []*streamPump{h.stdout, h.stderr} {
		n, err := p.drain()
		if n > 0 {
			progressed = true
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return progressed, err
		}
	}
	return progressed, nil
}

// Kill terminates the process immediately. It does nothing if the process
// has already exited or has already been killed.
func (h *ProcessHandle) Kill() error {
	if h.cmd == nil || h.killed || h.exited() {
		return nil
	}
	h.killed = true
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing %s: %w", h.args[0], err)
	}
	return nil
}

// Send offers p to the child's stdin without blocking and returns how many
// bytes were accepted. It returns io.ErrClosedPipe once stdin is closed or
// the child has stopped reading.
func (h *ProcessHandle) Send(p []byte) (int, error) {
	if h.stdin == nil {
		return 0, io.ErrClosedPipe
	}
	n, err := h.stdin.write(p)
	if errors.Is(err, io.ErrClosedPipe) {
		h.stdin = nil
	}
	return n, err
}

// CloseStdin signals end of input to the child.
func (h *ProcessHandle) CloseStdin() error {
	if h.stdin == nil {
		return nil
	}
	err := h.stdin.close()
	h.stdin = nil
	return err
}

// finalDrainPasses bounds the drain after exit when a descendant keeps
// writing to an inherited pipe.
const finalDrainPasses = 64

// Finalize waits for the process to exit, drains what is left in the pipes
// and returns the complete captured output. Resources are released
// whatever the outcome; it may only be called once.
func (h *ProcessHandle) Finalize() (stdout, stderr string, err error) {
	if h.finalized {
		return "", "", errors.New("process output already finalized")
	}
	h.finalized = true
	defer h.Close()

	if h.cmd != nil {
		<-h.done
		h.state = StateExited
	}

	// Keep draining until a pass makes no progress. A descendant that
	// inherited a pipe may hold it open, so EOF is not awaited.
	for range finalDrainPasses {
		progressed, err := h.drain()
		if err != nil {
			return "", "", err
		}
		if !progressed {
			break
		}
	}

	return h.collect()
}

// Abandon makes one last non-blocking drain pass over a killed process's
// pipes and returns what has been captured so far. Unlike Finalize it does
// not wait for the process to be reaped. Resources are released; it may
// only be called once, and not after Finalize.
func (h *ProcessHandle) Abandon() (stdout, stderr string, err error) {
	if h.finalized {
		return "", "", errors.New("process output already finalized")
	}
	h.finalized = true
	defer h.Close()

	if _, err := h.drain(); err != nil {
		return "", "", err
	}
	return h.collect()
}

func (h *ProcessHandle) collect() (stdout, stderr string, err error) {
	if stdout, err = h.stdout.finalize(); err != nil {
		return "", "", err
	}
	if stderr, err = h.stderr.finalize(); err != nil {
		return "", "", err
	}
	return stdout, stderr, nil
}

// WaitErr returns an error from reaping the process other than a non-zero
// exit, such as a failure copying a caller-supplied Stdin. It is only
// meaningful once the process has exited.
func (h *ProcessHandle) WaitErr() error {
	if !h.exited() {
		return nil
	}
	return h.waitErr
}

// Close releases the pipes and any spooled output. It does not wait for the
// process; a running process should be killed first. Safe to call more than
// once.
func (h *ProcessHandle) Close() error {
	if h.state == StateClosed {
		return nil
	}
	h.state = StateClosed

	var errs []error
	if h.stdin != nil {
		errs = append(errs, h.stdin.close())
		h.stdin = nil
	}
	for _, p := range []*streamPump{h.stdout, h.stderr} {
		if p != nil {
			errs = append(errs, p.close())
		}
	}
	return errors.Join(errs...)
}
