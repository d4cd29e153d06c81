package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// LevelCritical is above slog.LevelError for failures that end the program.
const LevelCritical = slog.LevelError + 4

// ConsoleHandler is a slog.Handler that prints each record's message
// colored by level, followed by its attributes as key=value pairs.
type ConsoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	styles map[slog.Level]lipgloss.Style
	attrs  string
	group  string
}

// NewConsoleHandler returns a handler writing to w. Colors are rendered for
// profile; termenv.Ascii disables them.
func NewConsoleHandler(w io.Writer, level slog.Leveler, profile termenv.Profile) *ConsoleHandler {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)

	return &ConsoleHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
		styles: map[slog.Level]lipgloss.Style{
			slog.LevelDebug: r.NewStyle().Foreground(lipgloss.Color("6")),
			slog.LevelInfo:  r.NewStyle(),
			slog.LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("3")),
			slog.LevelError: r.NewStyle().Foreground(lipgloss.Color("1")),
			LevelCritical:   r.NewStyle().Foreground(lipgloss.Color("5")),
		},
	}
}

func (h *ConsoleHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(h.style(r.Level).Render(r.Message))
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.group, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// style picks the style of the nearest level at or below l.
func (h *ConsoleHandler) style(l slog.Level) lipgloss.Style {
	switch {
	case l >= LevelCritical:
		return h.styles[LevelCritical]
	case l >= slog.LevelError:
		return h.styles[slog.LevelError]
	case l >= slog.LevelWarn:
		return h.styles[slog.LevelWarn]
	case l >= slog.LevelInfo:
		return h.styles[slog.LevelInfo]
	default:
		return h.styles[slog.LevelDebug]
	}
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}
	h2 := *h
	h2.attrs = b.String()
	return &h2
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = h.group + name + "."
	return &h2
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := prefix
		if a.Key != "" {
			group += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, group, ga)
		}
		return
	}

	val := a.Value.String()
	if strings.ContainsAny(val, " \t\n\"=") {
		val = fmt.Sprintf("%q", val)
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(val)
}
