package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/loggate/loggate/core"
	"github.com/loggate/loggate/router"
)

// SlogBridge implements slog.Handler on top of a Router, so code written
// against log/slog can feed the same pipeline. Records are emitted under
// a fixed category; groups are flattened into dot-prefixed field keys.
type SlogBridge struct {
	router   *router.Router
	category string
	attrs    []core.Field
	group    string
}

// NewSlogBridge adapts rt into a slog.Handler emitting under category.
func NewSlogBridge(rt *router.Router, category string) *SlogBridge {
	return &SlogBridge{
		router:   rt,
		category: category,
	}
}

// Enabled consults the category registry, so slog callers get the same
// early filtering as native ones.
func (s *SlogBridge) Enabled(_ context.Context, level slog.Level) bool {
	return s.router.Registry().IsEnabled(s.category, slogLevelToCore(level))
}

// Handle converts the record into an event and dispatches it.
func (s *SlogBridge) Handle(_ context.Context, record slog.Record) error {
	ev := &core.Event{
		Time:     record.Time,
		Level:    slogLevelToCore(record.Level),
		Category: s.category,
		Message:  record.Message,
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	if n := len(s.attrs) + record.NumAttrs(); n > 0 {
		ev.Context = make([]core.Field, 0, n)
		ev.Context = append(ev.Context, s.attrs...)
		record.Attrs(func(a slog.Attr) bool {
			ev.Context = append(ev.Context, slogAttrToField(s.group, a))
			return true
		})
	}

	s.router.Dispatch(ev)
	return nil
}

// WithAttrs returns a bridge carrying additional pre-bound attributes.
func (s *SlogBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *s
	next.attrs = make([]core.Field, len(s.attrs), len(s.attrs)+len(attrs))
	copy(next.attrs, s.attrs)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slogAttrToField(s.group, a))
	}
	return &next
}

// WithGroup returns a bridge that prefixes subsequent attribute keys.
func (s *SlogBridge) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	next := *s
	if s.group != "" {
		next.group = s.group + "." + name
	} else {
		next.group = name
	}
	return &next
}

func slogLevelToCore(level slog.Level) core.Level {
	switch {
	case level >= slog.LevelError:
		return core.ErrorLevel
	case level >= slog.LevelWarn:
		return core.WarnLevel
	case level >= slog.LevelInfo:
		return core.InfoLevel
	case level >= slog.LevelDebug:
		return core.DebugLevel
	default:
		return core.TraceLevel
	}
}

func slogAttrToField(group string, a slog.Attr) core.Field {
	key := a.Key
	if group != "" {
		key = group + "." + a.Key
	}

	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindString:
		return core.String(key, a.Value.String())
	case slog.KindInt64:
		return core.Int64(key, a.Value.Int64())
	case slog.KindUint64:
		return core.Any(key, a.Value.Uint64())
	case slog.KindFloat64:
		return core.Float64(key, a.Value.Float64())
	case slog.KindBool:
		return core.Bool(key, a.Value.Bool())
	case slog.KindTime:
		return core.Time(key, a.Value.Time())
	case slog.KindDuration:
		return core.Duration(key, a.Value.Duration())
	case slog.KindGroup:
		// Nested groups flatten to prefixed keys. A group value with
		// several members keeps only its raw form here; slog expands
		// groups into separate attrs before Handle in the common path.
		return core.Any(key, a.Value.Any())
	default:
		return core.Any(key, a.Value.Any())
	}
}
