//go:build windows

package subprocess

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32       = windows.NewLazySystemDLL("kernel32.dll")
	procPeekNamedPipe = modkernel32.NewProc("PeekNamedPipe")
)

// peekNamedPipe reports how many bytes can be read from h without blocking.
func peekNamedPipe(h windows.Handle, avail *uint32) error {
	r1, _, e1 := procPeekNamedPipe.Call(uintptr(h), 0, 0, 0, uintptr(unsafe.Pointer(avail)), 0)
	if r1 != 0 {
		return nil
	}
	if errno, ok := e1.(windows.Errno); ok && errno != 0 {
		return errno
	}
	return windows.ERROR_INVALID_FUNCTION
}

// handlePipe is the parent's end of an anonymous pipe. Reads peek first so
// ReadFile is only issued for bytes that are already there.
type handlePipe struct {
	h      windows.Handle
	closed bool
}

// newReadPipe returns a pipe the parent reads from and the *os.File the
// child writes to.
func newReadPipe() (pipe, *os.File, error) {
	r, w, err := rawPipe()
	if err != nil {
		return nil, nil, err
	}
	return &handlePipe{h: r}, os.NewFile(uintptr(w), "|1"), nil
}

// newWritePipe returns a pipe the parent writes to and the *os.File the
// child reads from.
func newWritePipe() (pipe, *os.File, error) {
	r, w, err := rawPipe()
	if err != nil {
		return nil, nil, err
	}
	return &handlePipe{h: w}, os.NewFile(uintptr(r), "|0"), nil
}

func rawPipe() (r, w windows.Handle, err error) {
	// Handles are created non-inheritable; os/exec duplicates the child's
	// end into the new process.
	if err := windows.CreatePipe(&r, &w, nil, 0); err != nil {
		return 0, 0, fmt.Errorf("creating pipe: %w", err)
	}
	return r, w, nil
}

func (p *handlePipe) read(b []byte) (int, error) {
	if p.closed {
		return 0, io.EOF
	}

	var avail uint32
	if err := peekNamedPipe(p.h, &avail); err != nil {
		if isPipeClosed(err) {
			p.close()
			return 0, io.EOF
		}
		return 0, fmt.Errorf("peeking pipe: %w", err)
	}
	if avail == 0 || len(b) == 0 {
		return 0, nil
	}
	if int(avail) < len(b) {
		b = b[:avail]
	}

	var n uint32
	if err := windows.ReadFile(p.h, b, &n, nil); err != nil {
		if isPipeClosed(err) {
			p.close()
			return 0, io.EOF
		}
		return 0, fmt.Errorf("reading pipe: %w", err)
	}
	return int(n), nil
}

// write uses the synchronous WriteFile; anonymous pipes have no
// non-blocking mode. Writes are capped at one pipe buffer to keep the call
// short.
func (p *handlePipe) write(b []byte) (int, error) {
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if len(b) == 0 {
		return 0, nil
	}
	if len(b) > windowsWriteChunk {
		b = b[:windowsWriteChunk]
	}

	var n uint32
	if err := windows.WriteFile(p.h, b, &n, nil); err != nil {
		if isPipeClosed(err) {
			p.close()
			return 0, io.ErrClosedPipe
		}
		return 0, fmt.Errorf("writing pipe: %w", err)
	}
	return int(n), nil
}

func (p *handlePipe) close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return windows.CloseHandle(p.h)
}

const windowsWriteChunk = 4096

// isPipeClosed reports the errors Windows uses for "the other end is gone".
func isPipeClosed(err error) bool {
	return errors.Is(err, windows.ERROR_BROKEN_PIPE) ||
		errors.Is(err, windows.ERROR_NO_DATA) ||
		errors.Is(err, windows.ERROR_PIPE_NOT_CONNECTED)
}
