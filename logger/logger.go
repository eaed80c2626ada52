package logger

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/loggate/loggate/core"
	"github.com/loggate/loggate/router"
)

// Logger is a convenience front-end bound to one category of a Router.
// A Logger is immutable; With returns a derived instance.
type Logger struct {
	router        *router.Router
	category      string
	fields        []core.Field
	clock         core.Clock
	includeCaller bool
	callerSkip    int
	stackMin      core.Level
	captureStack  bool
	frameFn       func() uint64
	threadName    string
}

// Option configures a Logger at construction.
type Option func(*Logger)

// WithCaller enables capturing the call site of each log statement.
func WithCaller(enabled bool) Option {
	return func(l *Logger) { l.includeCaller = enabled }
}

// WithClock replaces the time source. Useful in tests.
func WithClock(clock core.Clock) Option {
	return func(l *Logger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithFields binds context fields to every event this logger emits.
func WithFields(fields ...core.Field) Option {
	return func(l *Logger) { l.fields = append(l.fields, fields...) }
}

// WithFrameSource supplies a monotonic frame counter, sampled per event.
// Game and simulation loops use this to correlate log lines with ticks.
func WithFrameSource(fn func() uint64) Option {
	return func(l *Logger) { l.frameFn = fn }
}

// WithThreadName stamps every event with a logical thread name.
func WithThreadName(name string) Option {
	return func(l *Logger) { l.threadName = name }
}

// WithStacktrace captures a stack trace on events at or above min.
func WithStacktrace(min core.Level) Option {
	return func(l *Logger) {
		l.stackMin = min
		l.captureStack = true
	}
}

// New creates a logger that dispatches through rt under the given
// category. The category must be non-empty and is registered lazily by
// the registry on first level override, not here.
func New(rt *router.Router, category string, opts ...Option) (*Logger, error) {
	if rt == nil {
		return nil, fmt.Errorf("%w: nil router", core.ErrInvalidArgument)
	}
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("%w: empty category", core.ErrInvalidArgument)
	}
	l := &Logger{
		router:     rt,
		category:   category,
		clock:      core.SystemClock{},
		callerSkip: 3,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Category returns the category this logger emits under.
func (l *Logger) Category() string { return l.category }

// Router returns the router this logger dispatches through.
func (l *Logger) Router() *router.Router { return l.router }

// With returns a derived logger carrying additional bound fields.
func (l *Logger) With(fields ...core.Field) *Logger {
	if len(fields) == 0 {
		return l
	}
	next := *l
	merged := make([]core.Field, len(l.fields)+len(fields))
	copy(merged, l.fields)
	copy(merged[len(l.fields):], fields)
	next.fields = merged
	return &next
}

// Enabled reports whether an event at the given level would pass the
// category filter. Callers can use it to skip expensive argument
// construction.
func (l *Logger) Enabled(level core.Level) bool {
	return l.router.Registry().IsEnabled(l.category, level)
}

// Log emits one event at the given level.
func (l *Logger) Log(level core.Level, msg string, fields ...core.Field) {
	if !l.Enabled(level) {
		return
	}
	l.emit(level, msg, fields)
}

func (l *Logger) emit(level core.Level, msg string, fields []core.Field) {
	ev := &core.Event{
		Time:       l.clock.Now(),
		Level:      level,
		Category:   l.category,
		Message:    msg,
		ThreadName: l.threadName,
	}
	if l.frameFn != nil {
		ev.Frame = l.frameFn()
	}

	switch {
	case len(fields) == 0:
		ev.Context = l.fields
	case len(l.fields) == 0:
		ev.Context = fields
	default:
		merged := make([]core.Field, len(l.fields)+len(fields))
		copy(merged, l.fields)
		copy(merged[len(l.fields):], fields)
		ev.Context = merged
	}

	if l.includeCaller {
		ev.Caller = core.GetCaller(l.callerSkip)
	}
	if l.captureStack && level >= l.stackMin {
		ev.Stack = string(debug.Stack())
	}

	l.router.Dispatch(ev)
}

// Trace logs at Trace level.
func (l *Logger) Trace(msg string, fields ...core.Field) {
	if !l.Enabled(core.TraceLevel) {
		return
	}
	l.emit(core.TraceLevel, msg, fields)
}

// Debug logs at Debug level.
func (l *Logger) Debug(msg string, fields ...core.Field) {
	if !l.Enabled(core.DebugLevel) {
		return
	}
	l.emit(core.DebugLevel, msg, fields)
}

// Info logs at Info level.
func (l *Logger) Info(msg string, fields ...core.Field) {
	if !l.Enabled(core.InfoLevel) {
		return
	}
	l.emit(core.InfoLevel, msg, fields)
}

// Warn logs at Warn level.
func (l *Logger) Warn(msg string, fields ...core.Field) {
	if !l.Enabled(core.WarnLevel) {
		return
	}
	l.emit(core.WarnLevel, msg, fields)
}

// Error logs at Error level.
func (l *Logger) Error(msg string, fields ...core.Field) {
	if !l.Enabled(core.ErrorLevel) {
		return
	}
	l.emit(core.ErrorLevel, msg, fields)
}

// Critical logs at Critical level.
func (l *Logger) Critical(msg string, fields ...core.Field) {
	if !l.Enabled(core.CriticalLevel) {
		return
	}
	l.emit(core.CriticalLevel, msg, fields)
}

// Tracef logs a formatted message at Trace level. The format arguments
// are not evaluated when the level is filtered out.
func (l *Logger) Tracef(format string, args ...interface{}) {
	if !l.Enabled(core.TraceLevel) {
		return
	}
	l.emit(core.TraceLevel, fmt.Sprintf(format, args...), nil)
}

// Debugf logs a formatted message at Debug level.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if !l.Enabled(core.DebugLevel) {
		return
	}
	l.emit(core.DebugLevel, fmt.Sprintf(format, args...), nil)
}

// Infof logs a formatted message at Info level.
func (l *Logger) Infof(format string, args ...interface{}) {
	if !l.Enabled(core.InfoLevel) {
		return
	}
	l.emit(core.InfoLevel, fmt.Sprintf(format, args...), nil)
}

// Warnf logs a formatted message at Warn level.
func (l *Logger) Warnf(format string, args ...interface{}) {
	if !l.Enabled(core.WarnLevel) {
		return
	}
	l.emit(core.WarnLevel, fmt.Sprintf(format, args...), nil)
}

// Errorf logs a formatted message at Error level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	if !l.Enabled(core.ErrorLevel) {
		return
	}
	l.emit(core.ErrorLevel, fmt.Sprintf(format, args...), nil)
}

// Criticalf logs a formatted message at Critical level.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	if !l.Enabled(core.CriticalLevel) {
		return
	}
	l.emit(core.CriticalLevel, fmt.Sprintf(format, args...), nil)
}
