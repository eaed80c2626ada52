package router

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/loggate/loggate/category"
	"github.com/loggate/loggate/core"
	"github.com/loggate/loggate/sink"
)

// Router is the central dispatch point of the pipeline. It consults the
// category registry's level filter and fans passing events out to every
// registered sink, in registration order, on the caller's goroutine.
//
// The sink set is held as an immutable slice behind an atomic pointer:
// Dispatch never takes a lock, while the rare Register/Unregister calls
// clone the slice under a mutex.
type Router struct {
	registry *category.Registry
	diag     *zap.Logger

	mu     sync.Mutex // serializes sink set changes and Close
	sinks  atomic.Pointer[[]sink.Sink]
	closed bool
}

// Option configures a Router.
type Option func(*Router)

// WithDiagnostics routes sink failures to the given logger. This is a
// side channel separate from the pipeline itself, so a failing sink can
// never feed back into Dispatch. Default is a no-op logger.
func WithDiagnostics(diag *zap.Logger) Option {
	return func(r *Router) {
		if diag != nil {
			r.diag = diag
		}
	}
}

// New creates a router over the given category registry.
func New(registry *category.Registry, opts ...Option) *Router {
	r := &Router{
		registry: registry,
		diag:     zap.NewNop(),
	}
	empty := []sink.Sink{}
	r.sinks.Store(&empty)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the category registry the router filters through.
func (r *Router) Registry() *category.Registry {
	return r.registry
}

// RegisterSink adds a sink. Sinks are identified by instance: registering
// the same instance twice is a no-op, while two distinct sinks may share
// a name.
func (r *Router) RegisterSink(s sink.Sink) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.sinks.Load()
	for _, existing := range current {
		if existing == s {
			return
		}
	}
	next := make([]sink.Sink, len(current)+1)
	copy(next, current)
	next[len(current)] = s
	r.sinks.Store(&next)
}

// UnregisterSink removes a sink by instance identity. Absent sinks are a
// no-op. The sink is not closed; that stays the caller's responsibility.
func (r *Router) UnregisterSink(s sink.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.sinks.Load()
	for i, existing := range current {
		if existing == s {
			next := make([]sink.Sink, 0, len(current)-1)
			next = append(next, current[:i]...)
			next = append(next, current[i+1:]...)
			r.sinks.Store(&next)
			return
		}
	}
}

// Sinks returns a snapshot of the registered sinks in registration order.
func (r *Router) Sinks() []sink.Sink {
	current := *r.sinks.Load()
	out := make([]sink.Sink, len(current))
	copy(out, current)
	return out
}

// Dispatch routes one event. Events below their category's minimum level
// return immediately with no side effect; this check runs before any
// formatting work. A failing or panicking sink is reported to diagnostics
// and never prevents delivery to the remaining sinks.
func (r *Router) Dispatch(ev *core.Event) {
	if ev == nil {
		return
	}
	if !r.registry.IsEnabled(ev.Category, ev.Level) {
		return
	}
	for _, s := range *r.sinks.Load() {
		r.writeGuarded(s, ev)
	}
}

// writeGuarded isolates one sink's Write from the dispatch loop.
func (r *Router) writeGuarded(s sink.Sink, ev *core.Event) {
	defer func() {
		if p := recover(); p != nil {
			r.diag.Error("sink panicked during write",
				zap.String("sink", s.Name()),
				zap.Any("panic", p),
			)
		}
	}()
	if err := s.Write(ev); err != nil {
		r.diag.Warn("sink write failed",
			zap.String("sink", s.Name()),
			zap.String("reason", sink.TruncateReason(err)),
		)
	}
}

// Flush broadcasts a flush to every registered sink concurrently and
// returns the first error. Used for orderly shutdown.
func (r *Router) Flush() error {
	var g errgroup.Group
	for _, s := range *r.sinks.Load() {
		g.Go(s.Flush)
	}
	return g.Wait()
}

// Close flushes and closes every registered sink, then empties the sink
// set. Safe to call more than once.
func (r *Router) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	current := *r.sinks.Load()
	empty := []sink.Sink{}
	r.sinks.Store(&empty)
	r.mu.Unlock()

	var g errgroup.Group
	for _, s := range current {
		g.Go(s.Close)
	}
	return g.Wait()
}
