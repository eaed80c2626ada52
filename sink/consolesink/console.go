package consolesink

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/loggate/loggate/core"
	"github.com/loggate/loggate/template"
)

// Config configures a console sink.
type Config struct {
	// Writer defaults to os.Stdout.
	Writer io.Writer

	// Engine renders events; a private engine with the process default
	// template is created when nil.
	Engine *template.Engine

	// Format selects Text or JSON rendering.
	Format template.Kind

	// Name defaults to "console".
	Name string
}

// ConsoleSink writes rendered events synchronously to an io.Writer. It
// is an immediate local sink: Write formats and writes on the caller's
// goroutine, under a mutex held only for the format-and-write pair.
type ConsoleSink struct {
	name   string
	engine *template.Engine
	format template.Kind

	mu     sync.Mutex
	w      io.Writer
	buf    bytes.Buffer // scratch, guarded by mu
	closed bool
}

// New creates a console sink.
func New(cfg Config) *ConsoleSink {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Engine == nil {
		cfg.Engine = template.NewEngine(nil)
	}
	if cfg.Name == "" {
		cfg.Name = "console"
	}
	s := &ConsoleSink{
		name:   cfg.Name,
		engine: cfg.Engine,
		format: cfg.Format,
		w:      cfg.Writer,
	}
	s.buf.Grow(256)
	return s
}

// Name returns the sink's descriptive name.
func (s *ConsoleSink) Name() string { return s.name }

// Write renders the event and writes it immediately.
func (s *ConsoleSink) Write(ev *core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	s.buf.Reset()
	s.engine.FormatTo(ev, s.format, &s.buf)
	_, err := s.w.Write(s.buf.Bytes())
	return err
}

// Flush is a no-op for unbuffered writers; writers exposing their own
// Flush are drained.
func (s *ConsoleSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close marks the sink inert. Safe to call more than once; the writer is
// not closed because the sink does not own stdout/stderr.
func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
