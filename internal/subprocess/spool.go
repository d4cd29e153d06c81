package subprocess

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

var errFinalized = errors.New("spooled buffer already finalized")

// SpooledBuffer is an append-only byte sink that stays in memory up to a
// threshold and transparently moves to a temporary file beyond it.
//
// A buffer has a single writer. Finalize reads everything back once; Close
// releases the temporary file and must be called on every path.
type SpooledBuffer struct {
	threshold int
	dir       string

	mem       bytes.Buffer
	file      *os.File
	size      int64
	finalized bool
	closed    bool
}

// NewSpooledBuffer returns a buffer that spills to a temporary file in dir
// (os.TempDir when empty) once more than threshold bytes have been written.
func NewSpooledBuffer(threshold int, dir string) *SpooledBuffer {
	if threshold < 0 {
		threshold = 0
	}
	return &SpooledBuffer{threshold: threshold, dir: dir}
}

// Write appends p. It never shortens a write without returning an error.
func (b *SpooledBuffer) Write(p []byte) (int, error) {
	if b.finalized || b.closed {
		return 0, errFinalized
	}

	if b.file == nil && b.mem.Len()+len(p) > b.threshold {
		if err := b.spill(); err != nil {
			return 0, err
		}
	}

	var n int
	var err error
	if b.file != nil {
		n, err = b.file.Write(p)
		if err != nil {
			err = fmt.Errorf("writing spool file: %w", err)
		}
	} else {
		n, err = b.mem.Write(p)
	}
	b.size += int64(n)
	return n, err
}

func (b *SpooledBuffer) spill() error {
	f, err := os.CreateTemp(b.dir, "salt-bootstrap-spool-*")
	if err != nil {
		return fmt.Errorf("creating spool file: %w", err)
	}
	if _, err := f.Write(b.mem.Bytes()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("writing spool file: %w", err)
	}
	b.file = f
	b.mem = bytes.Buffer{}
	return nil
}

// Len returns the number of bytes written so far.
func (b *SpooledBuffer) Len() int64 { return b.size }

// Spilled reports whether the buffer has moved to a temporary file.
func (b *SpooledBuffer) Spilled() bool { return b.file != nil }

// Finalize flushes, rewinds and returns everything written. It may only be
// called once; later writes fail.
func (b *SpooledBuffer) Finalize() ([]byte, error) {
	if b.finalized || b.closed {
		return nil, errFinalized
	}
	b.finalized = true

	if b.file == nil {
		return bytes.Clone(b.mem.Bytes()), nil
	}

	if err := b.file.Sync(); err != nil {
		return nil, fmt.Errorf("flushing spool file: %w", err)
	}
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding spool file: %w", err)
	}
	data, err := io.ReadAll(b.file)
	if err != nil {
		return nil, fmt.Errorf("reading spool file: %w", err)
	}
	return data, nil
}

// Close drops the in-memory contents and removes the temporary file, if
// any. It is safe to call more than once.
func (b *SpooledBuffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.mem = bytes.Buffer{}

	if b.file == nil {
		return nil
	}
	name := b.file.Name()
	err := b.file.Close()
	b.file = nil
	if rmErr := os.Remove(name); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	return err
}
