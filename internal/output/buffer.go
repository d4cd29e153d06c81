package output

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultBufferSize is how many records a BufferingHandler keeps.
const DefaultBufferSize = 10000

// scope is what WithAttrs and WithGroup accumulated on a derived handler.
type scope struct {
	attrs []slog.Attr
	group string
}

func (s scope) apply(h slog.Handler) slog.Handler {
	if s.group != "" {
		h = h.WithGroup(s.group)
	}
	if len(s.attrs) > 0 {
		h = h.WithAttrs(s.attrs)
	}
	return h
}

type heldRecord struct {
	scope  scope
	record slog.Record
}

type recordQueue struct {
	mu      sync.Mutex
	max     int
	records []heldRecord
	target  slog.Handler
}

// BufferingHandler holds records logged before logging has been configured
// and hands them to the real handler once Sync is called. When full, the
// oldest records are dropped. After Sync it forwards records directly.
//
// Only one group level is tracked: attributes added before WithGroup are
// placed inside the group on replay.
type BufferingHandler struct {
	q     *recordQueue
	scope scope
}

// NewBufferingHandler returns a handler that keeps up to max records.
func NewBufferingHandler(max int) *BufferingHandler {
	if max < 1 {
		max = DefaultBufferSize
	}
	return &BufferingHandler{q: &recordQueue{max: max}}
}

func (h *BufferingHandler) Enabled(ctx context.Context, l slog.Level) bool {
	h.q.mu.Lock()
	target := h.q.target
	h.q.mu.Unlock()
	if target != nil {
		return target.Enabled(ctx, l)
	}
	return true
}

func (h *BufferingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.q.mu.Lock()
	target := h.q.target
	if target == nil {
		if len(h.q.records) == h.q.max {
			h.q.records = h.q.records[1:]
		}
		h.q.records = append(h.q.records, heldRecord{scope: h.scope, record: r.Clone()})
		h.q.mu.Unlock()
		return nil
	}
	h.q.mu.Unlock()

	return h.scope.apply(target).Handle(ctx, r)
}

func (h *BufferingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.scope.attrs = append(append([]slog.Attr(nil), h.scope.attrs...), attrs...)
	return &h2
}

func (h *BufferingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	if h.scope.group != "" {
		name = h.scope.group + "." + name
	}
	h2.scope.group = name
	return &h2
}

// Sync replays every held record that target accepts, in order, and
// forwards all later records straight to target.
func (h *BufferingHandler) Sync(ctx context.Context, target slog.Handler) error {
	h.q.mu.Lock()
	held := h.q.records
	h.q.records = nil
	h.q.target = target
	h.q.mu.Unlock()

	for _, hr := range held {
		if !target.Enabled(ctx, hr.record.Level) {
			continue
		}
		if err := hr.scope.apply(target).Handle(ctx, hr.record); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of records currently held.
func (h *BufferingHandler) Len() int {
	h.q.mu.Lock()
	defer h.q.mu.Unlock()
	return len(h.q.records)
}
