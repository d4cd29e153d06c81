// Package logbuf keeps the trailing lines of command output so failures can
// be reported with enough context to diagnose them.
package logbuf

import (
	"bytes"
	"strings"
	"sync"
)

// Ring is a thread-safe ring buffer that stores the last N lines written to it.
// It implements io.Writer so it can sit behind a live output sink.
type Ring struct {
	mu    sync.Mutex
	lines []string
	size  int
	pos   int
	full  bool
	// partial holds an incomplete line (no trailing newline yet)
	partial bytes.Buffer
}

// New creates a ring buffer that stores the last n lines. n below 1 is
// treated as 1.
func New(n int) *Ring {
	if n < 1 {
		n = 1
	}
	return &Ring{
		lines: make([]string, n),
		size:  n,
	}
}

// Write implements io.Writer. Splits input on newlines and stores each line.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.partial.Write(p)

	for {
		line, err := r.partial.ReadString('\n')
		if err != nil {
			r.partial.Reset()
			r.partial.WriteString(line)
			break
		}
		r.addLine(strings.TrimSuffix(line, "\n"))
	}

	return len(p), nil
}

// Flush commits a pending partial line, if any. Output that does not end in
// a newline is otherwise invisible to Lines.
func (r *Ring) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.partial.Len() == 0 {
		return
	}
	r.addLine(r.partial.String())
	r.partial.Reset()
}

func (r *Ring) addLine(line string) {
	r.lines[r.pos] = line
	r.pos = (r.pos + 1) % r.size
	if r.pos == 0 {
		r.full = true
	}
}

// Lines returns all stored lines in order, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		result := make([]string, r.pos)
		copy(result, r.lines[:r.pos])
		return result
	}

	result := make([]string, r.size)
	copy(result, r.lines[r.pos:])
	copy(result[r.size-r.pos:], r.lines[:r.pos])
	return result
}

// Tail returns the last n lines of text, including a final line that has no
// trailing newline. Blank text yields nil.
func Tail(text string, n int) []string {
	if n < 1 || strings.TrimSpace(text) == "" {
		return nil
	}
	r := New(n)
	r.Write([]byte(strings.TrimRight(text, "\n")))
	r.Flush()
	return r.Lines()
}
