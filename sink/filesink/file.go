package filesink

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/loggate/loggate/core"
	"github.com/loggate/loggate/template"
)

// Config configures a file sink.
type Config struct {
	// Path of the log file; created or appended to. Required.
	Path string

	// Engine renders events; a private engine with the process default
	// template is created when nil.
	Engine *template.Engine

	// Format selects Text or JSON rendering.
	Format template.Kind

	// BufferSize of the write buffer in bytes; defaults to 32 KiB.
	BufferSize int

	// Name defaults to "file".
	Name string
}

// FileSink writes rendered events synchronously to a file through a
// buffered writer. Flush drains the buffer and fsyncs so the events
// survive a crash; Close flushes and releases the file.
type FileSink struct {
	name   string
	engine *template.Engine
	format template.Kind

	mu     sync.Mutex
	file   *os.File
	bw     *bufio.Writer
	buf    bytes.Buffer // scratch, guarded by mu
	closed bool
}

// New opens or creates the log file in append mode. An empty path fails
// with core.ErrInvalidArgument.
func New(cfg Config) (*FileSink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: empty file path", core.ErrInvalidArgument)
	}
	if cfg.Engine == nil {
		cfg.Engine = template.NewEngine(nil)
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 32 * 1024
	}
	if cfg.Name == "" {
		cfg.Name = "file"
	}

	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	s := &FileSink{
		name:   cfg.Name,
		engine: cfg.Engine,
		format: cfg.Format,
		file:   file,
		bw:     bufio.NewWriterSize(file, cfg.BufferSize),
	}
	s.buf.Grow(256)
	return s, nil
}

// Name returns the sink's descriptive name.
func (s *FileSink) Name() string { return s.name }

// Write renders the event into the write buffer.
func (s *FileSink) Write(ev *core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	s.buf.Reset()
	s.engine.FormatTo(ev, s.format, &s.buf)
	_, err := s.bw.Write(s.buf.Bytes())
	return err
}

// Flush drains the write buffer and syncs the file.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if err := s.bw.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close flushes and closes the file. Only the first call does work.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	flushErr := s.bw.Flush()
	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
