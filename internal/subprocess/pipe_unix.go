//go:build !windows

package subprocess

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// fdPipe is a raw pipe descriptor. It is never wrapped in an
// *os.File so the runtime poller does not take it over.
type fdPipe struct {
	fd     int
	closed bool
}

// newReadPipe returns a pipe the parent reads from and the *os.File the
// child writes to.
func newReadPipe() (pipe, *os.File, error) {
	r, w, err := rawPipe()
	if err != nil {
		return nil, nil, err
	}
	return &fdPipe{fd: r}, os.NewFile(uintptr(w), "|1"), nil
}

// newWritePipe returns a pipe the parent writes to and the *os.File the
// child reads from.
func newWritePipe() (pipe, *os.File, error) {
	r, w, err := rawPipe()
	if err != nil {
		return nil, nil, err
	}
	return &fdPipe{fd: w}, os.NewFile(uintptr(r), "|0"), nil
}

func rawPipe() (r, w int, err error) {
	var fds [2]int
	// Hold ForkLock so a concurrent fork cannot inherit the descriptors
	// before they are marked close-on-exec.
	syscall.ForkLock.RLock()
	err = unix.Pipe(fds[:])
	if err == nil {
		unix.CloseOnExec(fds[0])
		unix.CloseOnExec(fds[1])
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return -1, -1, fmt.Errorf("creating pipe: %w", err)
	}
	return fds[0], fds[1], nil
}

func (p *fdPipe) read(b []byte) (int, error) {
	if p.closed {
		return 0, io.EOF
	}

	var n int
	var polled bool
	err := p.nonblocking(func() error {
		ready, err := p.ready(unix.POLLIN)
		if err != nil || !ready {
			return err
		}
		polled = true
		n, err = unix.Read(p.fd, b)
		return err
	})

	switch {
	case errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("reading pipe: %w", err)
	case polled && n == 0 && len(b) > 0:
		// Readable with nothing to read: the writer has gone.
		p.close()
		return 0, io.EOF
	}
	return n, nil
}

func (p *fdPipe) write(b []byte) (int, error) {
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if len(b) == 0 {
		return 0, nil
	}

	var n int
	err := p.nonblocking(func() error {
		ready, err := p.ready(unix.POLLOUT)
		if err != nil || !ready {
			return err
		}
		n, err = unix.Write(p.fd, b)
		return err
	})

	switch {
	case errors.Is(err, unix.EPIPE):
		p.close()
		return 0, io.ErrClosedPipe
	case errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("writing pipe: %w", err)
	}
	return max(n, 0), nil
}

func (p *fdPipe) close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.fd)
}

// nonblocking runs fn with O_NONBLOCK set on the descriptor and restores
// the previous flags afterwards.
func (p *fdPipe) nonblocking(fn func() error) error {
	flags, err := unix.FcntlInt(uintptr(p.fd), unix.F_GETFL, 0)
	if err != nil {
		return fmt.Errorf("getting pipe flags: %w", err)
	}
	if _, err := unix.FcntlInt(uintptr(p.fd), unix.F_SETFL, flags|unix.O_NONBLOCK); err != nil {
		return fmt.Errorf("setting pipe non-blocking: %w", err)
	}
	defer unix.FcntlInt(uintptr(p.fd), unix.F_SETFL, flags)
	return fn()
}

// ready polls the descriptor with a zero timeout. Hang-up and error
// conditions count as ready so the following read or write observes them.
func (p *fdPipe) ready(events int16) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: events}}
	n, err := unix.Poll(fds, 0)
	if errors.Is(err, unix.EINTR) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("polling pipe: %w", err)
	}
	return n > 0 && fds[0].Revents != 0, nil
}
