package subprocess

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/transform"
)

const (
	// pumpChunk is the size of a single read from a pipe.
	pumpChunk = 4096
	// maxDrain caps one drain so a chatty stream cannot starve the other
	// stream or the deadline check.
	maxDrain = 1 << 20
)

// streamPump moves bytes from one pipe into a SpooledBuffer and, in the
// same order, into a live sink. Bytes are newline-normalized before either.
type streamPump struct {
	name   string
	pipe   pipe
	buf    *SpooledBuffer
	out    *transform.Writer
	chunk  []byte
	closed bool
}

func newStreamPump(name string, p pipe, buf *SpooledBuffer, sink io.Writer) *streamPump {
	return &streamPump{
		name:  name,
		pipe:  p,
		buf:   buf,
		out:   transform.NewWriter(captureWriter{buf: buf, live: sink}, &newlineNormalizer{}),
		chunk: make([]byte, pumpChunk),
	}
}

// captureWriter stores normalized bytes and forwards them to the live sink.
// Failures of the live sink are ignored.
type captureWriter struct {
	buf  *SpooledBuffer
	live io.Writer
}

func (w captureWriter) Write(p []byte) (int, error) {
	if _, err := w.buf.Write(p); err != nil {
		return 0, err
	}
	if w.live != nil {
		_, _ = w.live.Write(p)
	}
	return len(p), nil
}

// drain reads everything currently available without blocking. It returns
// the number of raw bytes consumed, and io.EOF once the pipe has closed.
func (s *streamPump) drain() (int, error) {
	if s.closed {
		return 0, io.EOF
	}

	total := 0
	for total < maxDrain {
		n, err := s.pipe.read(s.chunk)
		if n > 0 {
			if werr := s.emit(s.chunk[:n]); werr != nil {
				return total, werr
			}
			total += n
		}
		if errors.Is(err, io.EOF) {
			s.closed = true
			return total, io.EOF
		}
		if err != nil {
			return total, fmt.Errorf("draining %s: %w", s.name, err)
		}
		if n < len(s.chunk) {
			// Short read: nothing more is waiting right now.
			return total, nil
		}
	}
	return total, nil
}

func (s *streamPump) emit(raw []byte) error {
	if _, err := s.out.Write(raw); err != nil {
		return fmt.Errorf("capturing %s: %w", s.name, err)
	}
	return nil
}

// finalize returns the captured text. It must only be called once the
// process can no longer write.
func (s *streamPump) finalize() (string, error) {
	data, err := s.buf.Finalize()
	if err != nil {
		return "", fmt.Errorf("reading captured %s: %w", s.name, err)
	}
	return string(data), nil
}

// close releases the pipe and the buffer.
func (s *streamPump) close() error {
	s.closed = true
	return errors.Join(s.pipe.close(), s.buf.Close())
}
