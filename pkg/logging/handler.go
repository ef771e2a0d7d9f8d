package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const timeFormat = "2006/01/02 15:04:05"

// Handler writes one line per record: "[time] [LEVEL] [value]... message".
// Attribute keys are hidden. Values bound with WithAttrs come first, and the
// level is omitted for info records.
type Handler struct {
	level slog.Leveler
	bound []string
	mu    *sync.Mutex
	out   io.Writer
}

func NewHandler(o io.Writer, opts *slog.HandlerOptions) *Handler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &Handler{level: level, mu: &sync.Mutex{}, out: o}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	bound := append([]string(nil), h.bound...)
	for _, a := range attrs {
		bound = appendValues(bound, a)
	}
	return &Handler{level: h.level, bound: bound, mu: h.mu, out: h.out}
}

// WithGroup only qualifies keys, which are never printed.
func (h *Handler) WithGroup(string) slog.Handler {
	return h
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]string, 0, 2+len(h.bound)+r.NumAttrs())
	fields = append(fields, "["+r.Time.Format(timeFormat)+"]")
	if r.Level != slog.LevelInfo {
		fields = append(fields, "["+r.Level.String()+"]")
	}
	fields = append(fields, h.bound...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendValues(fields, a)
		return true
	})
	fields = append(fields, r.Message)

	line := strings.Join(fields, " ") + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line)
	return err
}

// appendValues adds the bracketed value of a, one entry per member of a group.
func appendValues(fields []string, a slog.Attr) []string {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, member := range v.Group() {
			fields = appendValues(fields, member)
		}
		return fields
	}
	if a.Equal(slog.Attr{}) {
		return fields
	}
	return append(fields, "["+v.String()+"]")
}
