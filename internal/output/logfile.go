// Package output owns what salt-bootstrap shows on the console and records
// in its log file.
//
// Everything written to the console through a Tee also lands in the log
// file with terminal escape sequences removed, so the log file reads as
// plain text while the console keeps its colors.
package output

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"
)

// ansiEscape matches 7-bit C1 escape sequences: a lone Fe escape, or a CSI
// sequence with its parameter, intermediate and final bytes.
var ansiEscape = regexp.MustCompile(`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// StripANSI removes terminal escape sequences from p.
func StripANSI(p []byte) []byte {
	return ansiEscape.ReplaceAll(p, nil)
}

// LogFile is an append-only plain-text log. Writes from several goroutines
// are serialized.
type LogFile struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// OpenLogFile creates or opens the log file at path for appending.
func OpenLogFile(path string) (*LogFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return &LogFile{file: f, path: path}, nil
}

// Path returns the file's location.
func (l *LogFile) Path() string { return l.path }

// Write strips escape sequences from p and appends the rest. It reports
// len(p) on success so it can sit behind an io.MultiWriter.
func (l *LogFile) Write(p []byte) (int, error) {
	clean := StripANSI(p)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(clean); err != nil {
		return 0, fmt.Errorf("writing log file: %w", err)
	}
	return len(p), nil
}

// Close closes the log file.
func (l *LogFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

type tee struct {
	console io.Writer
	log     io.Writer
}

// Tee returns a writer that forwards everything to console unchanged and to
// log with escape sequences stripped. A failing log never blocks console
// output. With a nil log the console writer is returned as is.
func Tee(console io.Writer, log *LogFile) io.Writer {
	if log == nil {
		return console
	}
	return &tee{console: console, log: log}
}

func (t *tee) Write(p []byte) (int, error) {
	_, _ = t.log.Write(p)
	return t.console.Write(p)
}
