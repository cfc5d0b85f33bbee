package errlog

import (
	"context"
	"log/slog"
)

// Handler adapts the Sink to log/slog: records at or above MinLevel are
// appended to the persisted ring, so regular slog calls from any component
// end up in storage. An "error" attribute carrying an error value is
// promoted to the entry's error detail.
type Handler struct {
	sink     *Sink
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

// NewHandler creates a slog handler writing into the sink
func NewHandler(sink *Sink, minLevel slog.Level) *Handler {
	return &Handler{
		sink:     sink,
		minLevel: minLevel,
	}
}

// Enabled reports whether records at the given level are persisted
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

// Handle appends the record to the persisted ring
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	logCtx := make(map[string]any)
	var attachedErr error

	collect := func(attr slog.Attr, group string) {
		key := attr.Key
		if group != "" {
			key = group + "." + key
		}
		// Атрибут error с ошибкой попадает в error detail, а не в context
		if err, ok := attr.Value.Any().(error); ok && attr.Key == "error" {
			attachedErr = err
			return
		}
		logCtx[key] = attr.Value.Any()
	}

	// Атрибуты из WithAttrs уже квалифицированы группой на момент добавления
	for _, attr := range h.attrs {
		collect(attr, "")
	}
	record.Attrs(func(attr slog.Attr) bool {
		collect(attr, h.group)
		return true
	})

	if len(logCtx) == 0 {
		logCtx = nil
	}

	return h.sink.Append(ctx, levelFromSlog(record.Level), record.Message, attachedErr, logCtx)
}

// WithAttrs returns a handler that includes the given attrs in every record
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	qualified := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		if h.group != "" {
			attr.Key = h.group + "." + attr.Key
		}
		qualified = append(qualified, attr)
	}
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), qualified...)
	return &clone
}

// WithGroup returns a handler that prefixes attribute keys with the group name
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

// Fanout returns a handler duplicating every record into all the given
// handlers. Используется, чтобы логи шли и в терминал, и в persisted ring.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return &fanoutHandler{handlers: handlers}
}

type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

func levelFromSlog(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}
