package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ColorMode selects when console output is colored.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode accepts auto, always or never. Empty means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(s)); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
	}
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "critical":
		return LevelCritical, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", s)
	}
}

// Profile returns the color profile for mode when writing to w. In auto
// mode colors are used only when w is a terminal and NO_COLOR is unset.
func Profile(mode ColorMode, w io.Writer) termenv.Profile {
	switch mode {
	case ColorAlways:
		return termenv.ANSI
	case ColorNever:
		return termenv.Ascii
	}
	if termenv.EnvNoColor() {
		return termenv.Ascii
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return termenv.ANSI
	}
	return termenv.Ascii
}

var early = NewBufferingHandler(DefaultBufferSize)

// Hold makes the default logger buffer records until Setup runs. Call it
// first thing in main.
func Hold() {
	slog.SetDefault(slog.New(early))
}

// Config describes the console and log file for one invocation.
type Config struct {
	Level   slog.Level
	Color   ColorMode
	LogFile string // empty disables the log file

	// Console streams; nil means os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Session is the configured output of one invocation. Stdout and Stderr
// are the writers command output should be mirrored to.
type Session struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	log    *LogFile
	bold   lipgloss.Style
}

// Setup opens the log file, installs the console handler as the default
// logger and replays whatever was logged since Hold.
func Setup(cfg Config) (*Session, error) {
	stdout, stderr := cfg.Stdout, cfg.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	s := &Session{}
	if cfg.LogFile != "" {
		lf, err := OpenLogFile(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		s.log = lf
	}
	s.Stdout = Tee(stdout, s.log)
	s.Stderr = Tee(stderr, s.log)

	r := lipgloss.NewRenderer(stdout)
	r.SetColorProfile(Profile(cfg.Color, stdout))
	s.bold = r.NewStyle().Bold(true)

	handler := NewConsoleHandler(s.Stderr, cfg.Level, Profile(cfg.Color, stderr))
	s.Logger = slog.New(handler)
	slog.SetDefault(s.Logger)

	if err := early.Sync(context.Background(), handler); err != nil {
		return s, fmt.Errorf("replaying early log records: %w", err)
	}
	return s, nil
}

// Bold renders text in bold when stdout is colored.
func (s *Session) Bold(text string) string {
	return s.bold.Render(text)
}

// LogPath returns the log file location, or "" when there is none.
func (s *Session) LogPath() string {
	if s.log == nil {
		return ""
	}
	return s.log.Path()
}

// Close closes the log file.
func (s *Session) Close() error {
	if s.log == nil {
		return nil
	}
	return s.log.Close()
}
