//go:build !windows

package subprocess

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func quietOpts(t *testing.T) Options {
	t.Helper()
	return Options{Stdout: io.Discard, Stderr: io.Discard, TempDir: t.TempDir()}
}

// pollUntilExit drives h the way Run does and returns the exit code.
func pollUntilExit(t *testing.T, h *ProcessHandle, limit time.Duration) int {
	t.Helper()
	deadline := time.Now().Add(limit)
	for time.Now().Before(deadline) {
		code, exited, err := h.Poll()
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
		if exited {
			return code
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("process did not exit within %s", limit)
	return 0
}

func TestStartRejectsBadConfiguration(t *testing.T) {
	cases := []struct {
		name string
		cmd  Command
	}{
		{"empty", Command{}},
		{"empty program", Command{Args: []string{""}}},
		{"stdout redirect", Command{Args: []string{"true"}, Stdout: &bytes.Buffer{}}},
		{"stderr redirect", Command{Args: []string{"true"}, Stderr: &bytes.Buffer{}}},
		{"input and stdin", Command{Args: []string{"cat"}, Input: []byte("x"), Stdin: strings.NewReader("y")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := Start(tc.cmd, quietOpts(t))
			if err == nil {
				h.Kill()
				h.Close()
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestStartMissingExecutable(t *testing.T) {
	_, err := Start(Command{Args: []string{"salt-bootstrap-no-such-binary"}}, quietOpts(t))

	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("err = %v, want *SpawnError", err)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("expected wrapped exec.ErrNotFound, got %v", spawnErr.Err)
	}
}

func TestHandleLifecycle(t *testing.T) {
	h, err := Start(Command{Args: []string{"sh", "-c", "echo out; echo err >&2; exit 4"}}, quietOpts(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Close()

	if h.State() != StateRunning {
		t.Errorf("state = %s, want running", h.State())
	}
	if h.Pid() <= 0 {
		t.Errorf("pid = %d", h.Pid())
	}

	if code := pollUntilExit(t, h, 5*time.Second); code != 4 {
		t.Errorf("exit code = %d, want 4", code)
	}
	if h.State() != StateExited {
		t.Errorf("state = %s, want exited", h.State())
	}

	stdout, stderr, err := h.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if stdout != "out\n" || stderr != "err\n" {
		t.Errorf("stdout=%q stderr=%q", stdout, stderr)
	}
	if h.State() != StateClosed {
		t.Errorf("state = %s, want closed", h.State())
	}

	if _, _, err := h.Finalize(); err == nil {
		t.Error("expected error on second Finalize")
	}
	if _, _, err := h.Poll(); err == nil {
		t.Error("expected error polling a closed handle")
	}
}

func TestHandleKillIsIdempotent(t *testing.T) {
	h, err := Start(Command{Args: []string{"sleep", "10"}}, quietOpts(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Close()

	if err := h.Kill(); err != nil {
		t.Fatalf("first Kill: %v", err)
	}
	if err := h.Kill(); err != nil {
		t.Fatalf("second Kill: %v", err)
	}

	if code := pollUntilExit(t, h, 5*time.Second); code != -9 {
		t.Errorf("exit code = %d, want -9", code)
	}
	if err := h.Kill(); err != nil {
		t.Errorf("Kill after exit: %v", err)
	}
}

func TestHandleSendAndCloseStdin(t *testing.T) {
	h, err := Start(Command{Args: []string{"cat"}, Input: []byte{}}, quietOpts(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Close()

	msg := []byte("line one\nline two\n")
	for len(msg) > 0 {
		n, err := h.Send(msg)
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		msg = msg[n:]
	}
	if err := h.CloseStdin(); err != nil {
		t.Fatalf("CloseStdin: %v", err)
	}
	if _, err := h.Send([]byte("late")); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Send after close err = %v, want io.ErrClosedPipe", err)
	}

	if code := pollUntilExit(t, h, 5*time.Second); code != 0 {
		t.Errorf("exit code = %d", code)
	}
	stdout, _, err := h.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if stdout != "line one\nline two\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestHandleFinalizeDrainsAfterExit(t *testing.T) {
	// More than a pipe buffer's worth: the child only finishes because the
	// handle keeps draining.
	h, err := Start(Command{Args: []string{"sh", "-c", "head -c 300000 /dev/zero | tr '\\0' x"}}, quietOpts(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Close()

	pollUntilExit(t, h, 10*time.Second)
	stdout, _, err := h.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(stdout) != 300000 {
		t.Errorf("captured %d bytes, want 300000", len(stdout))
	}
}
