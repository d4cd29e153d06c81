package output

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muesli/termenv"
)

func TestStripANSI(t *testing.T) {
	cases := map[string]string{
		"plain":                       "plain",
		"\x1b[31mred\x1b[0m":          "red",
		"\x1b[1;38;5;6mbold\x1b[m end": "bold end",
		"a\x1bMb":                     "ab",
		"keep\ttabs\n":                "keep\ttabs\n",
	}
	for in, want := range cases {
		if got := string(StripANSI([]byte(in))); got != want {
			t.Errorf("StripANSI(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTeeStripsOnlyTheLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.log")
	lf, err := OpenLogFile(path)
	if err != nil {
		t.Fatalf("OpenLogFile: %v", err)
	}

	var console bytes.Buffer
	w := Tee(&console, lf)
	msg := "\x1b[33mwarning\x1b[0m: disk low\n"
	n, err := w.Write([]byte(msg))
	if err != nil || n != len(msg) {
		t.Fatalf("Write = %d, %v", n, err)
	}
	lf.Close()

	if console.String() != msg {
		t.Errorf("console = %q, want unchanged", console.String())
	}
	data, _ := os.ReadFile(path)
	if string(data) != "warning: disk low\n" {
		t.Errorf("log file = %q", data)
	}
}

func TestLogFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.log")

	for _, line := range []string{"first\n", "second\n"} {
		lf, err := OpenLogFile(path)
		if err != nil {
			t.Fatalf("OpenLogFile: %v", err)
		}
		lf.Write([]byte(line))
		lf.Close()
	}

	data, _ := os.ReadFile(path)
	if string(data) != "first\nsecond\n" {
		t.Errorf("log file = %q", data)
	}
}

func TestTeeWithoutLogFile(t *testing.T) {
	var console bytes.Buffer
	if w := Tee(&console, nil); w != &console {
		t.Error("expected the console writer back")
	}
}

func TestConsoleHandlerPlain(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, slog.LevelInfo, termenv.Ascii))

	logger.Debug("hidden")
	logger.Info("installing", "pkg", "git")
	logger.With("distro", "arch").Warn("slow mirror", "elapsed", "3 s")
	logger.WithGroup("run").Error("failed", "code", 2)

	want := "installing pkg=git\n" +
		"slow mirror distro=arch elapsed=\"3 s\"\n" +
		"failed run.code=2\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestConsoleHandlerColors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, slog.LevelDebug, termenv.ANSI))

	logger.Warn("careful")
	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected escape sequences, got %q", out)
	}
	if string(StripANSI([]byte(out))) != "careful\n" {
		t.Errorf("stripped = %q", StripANSI([]byte(out)))
	}

	buf.Reset()
	logger.Info("plain")
	if buf.String() != "plain\n" {
		t.Errorf("info should not be colored, got %q", buf.String())
	}
}

func TestBufferingHandlerReplays(t *testing.T) {
	bh := NewBufferingHandler(3)
	logger := slog.New(bh).With("component", "test")

	logger.Debug("dropped by level")
	logger.Info("one")
	logger.Info("two")
	logger.Info("three")
	if bh.Len() != 3 {
		t.Fatalf("held %d records, want 3", bh.Len())
	}

	var buf bytes.Buffer
	if err := bh.Sync(context.Background(), NewConsoleHandler(&buf, slog.LevelInfo, termenv.Ascii)); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	want := "one component=test\ntwo component=test\nthree component=test\n"
	if buf.String() != want {
		t.Errorf("replayed:\n%s\nwant:\n%s", buf.String(), want)
	}

	buf.Reset()
	logger.Info("after")
	if buf.String() != "after component=test\n" {
		t.Errorf("forwarded = %q", buf.String())
	}
	if bh.Len() != 0 {
		t.Errorf("held %d records after sync", bh.Len())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"":         slog.LevelInfo,
		"INFO":     slog.LevelInfo,
		"warning":  slog.LevelWarn,
		"error":    slog.LevelError,
		"critical": LevelCritical,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestProfile(t *testing.T) {
	var buf bytes.Buffer
	if Profile(ColorAlways, &buf) != termenv.ANSI {
		t.Error("always should force colors")
	}
	if Profile(ColorNever, &buf) != termenv.Ascii {
		t.Error("never should disable colors")
	}
	if Profile(ColorAuto, &buf) != termenv.Ascii {
		t.Error("a buffer is not a terminal")
	}
	if _, err := ParseColorMode("sometimes"); err == nil {
		t.Error("expected error for unknown color mode")
	}
}

func TestSetupWritesLogFile(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	path := filepath.Join(t.TempDir(), "bootstrap.log")
	var stdout, stderr bytes.Buffer
	s, err := Setup(Config{Level: slog.LevelInfo, Color: ColorAlways, LogFile: path, Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	s.Logger.Warn("check this")
	s.Stdout.Write([]byte("child output\n"))
	s.Close()

	if !strings.Contains(stderr.String(), "\x1b[") {
		t.Errorf("console should be colored: %q", stderr.String())
	}
	data, _ := os.ReadFile(path)
	if string(data) != "check this\nchild output\n" {
		t.Errorf("log file = %q", data)
	}
	if s.LogPath() != path {
		t.Errorf("LogPath = %q", s.LogPath())
	}
}
