//go:build windows

package subprocess

import (
	"errors"
	"io"
	"testing"
)

func newTestPipe(t *testing.T) (r, w *handlePipe) {
	t.Helper()
	rh, wh, err := rawPipe()
	if err != nil {
		t.Fatalf("rawPipe: %v", err)
	}
	r, w = &handlePipe{h: rh}, &handlePipe{h: wh}
	t.Cleanup(func() {
		r.close()
		w.close()
	})
	return r, w
}

func TestHandlePipeEmptyRead(t *testing.T) {
	r, _ := newTestPipe(t)

	n, err := r.read(make([]byte, 16))
	if n != 0 || err != nil {
		t.Errorf("read = %d, %v; want 0, nil", n, err)
	}
}

func TestHandlePipeReadAvailable(t *testing.T) {
	r, w := newTestPipe(t)

	if n, err := w.write([]byte("hello")); n != 5 || err != nil {
		t.Fatalf("write = %d, %v", n, err)
	}
	buf := make([]byte, 16)
	n, err := r.read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "hello" {
		t.Errorf("read %q, want %q", got, "hello")
	}
}

func TestHandlePipeEOFAfterWriterCloses(t *testing.T) {
	r, w := newTestPipe(t)

	w.write([]byte("bye"))
	w.close()

	buf := make([]byte, 16)
	n, err := r.read(buf)
	if err != nil || string(buf[:n]) != "bye" {
		t.Fatalf("read = %q, %v", buf[:n], err)
	}
	if _, err := r.read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("read after close = %v, want io.EOF", err)
	}
	if _, err := r.read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("second read after close = %v, want io.EOF", err)
	}
}

func TestHandlePipeWriteAfterReaderCloses(t *testing.T) {
	r, w := newTestPipe(t)
	r.close()

	if _, err := w.write([]byte("lost")); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("write = %v, want io.ErrClosedPipe", err)
	}
	if _, err := w.write([]byte("lost")); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("second write = %v, want io.ErrClosedPipe", err)
	}
}
