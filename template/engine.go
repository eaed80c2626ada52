package template

import (
	"bytes"
	"sync"
	"time"

	"github.com/loggate/loggate/core"
)

// Kind selects the output representation of Format.
type Kind int

const (
	// Text renders the event through the category's token template.
	Text Kind = iota
	// JSON renders a fixed-shape structured record; templates do not
	// apply to it.
	JSON
)

// OverrideStore is where per-category template overrides live. The
// category registry implements it, which is what lets a category rename
// carry its template along.
type OverrideStore interface {
	Template(category string) (string, bool)
	SetTemplate(category, template string) error
}

// mapStore is the fallback override store for engines constructed
// without a registry.
type mapStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func (s *mapStore) Template(category string) (string, bool) {
	s.mu.RLock()
	t, ok := s.m[category]
	s.mu.RUnlock()
	return t, ok
}

func (s *mapStore) SetTemplate(category, template string) error {
	s.mu.Lock()
	s.m[category] = template
	s.mu.Unlock()
	return nil
}

// DefaultTemplate is the process default used when no other template is
// configured.
const DefaultTemplate = "{timestamp} [{level}] {category}: {message}{newline}"

// Engine renders log events to text via token-substitution templates, or
// to a fixed-shape JSON record. Templates are compiled once and cached by
// their source text.
type Engine struct {
	overrides OverrideStore

	mu              sync.RWMutex
	defaultTemplate string
	timestampFormat string

	compiled sync.Map // template text -> *compiled
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimestampFormat overrides the time layout used by the {timestamp}
// token and the JSON timestamp field. Default is RFC 3339.
func WithTimestampFormat(layout string) Option {
	return func(e *Engine) { e.timestampFormat = layout }
}

// WithDefaultTemplate overrides the process default template.
func WithDefaultTemplate(tmpl string) Option {
	return func(e *Engine) { e.defaultTemplate = tmpl }
}

// NewEngine creates a template engine. overrides may be nil, in which
// case per-category overrides are kept in an engine-private map instead
// of a shared registry.
func NewEngine(overrides OverrideStore, opts ...Option) *Engine {
	e := &Engine{
		overrides:       overrides,
		defaultTemplate: DefaultTemplate,
		timestampFormat: time.RFC3339,
	}
	if e.overrides == nil {
		e.overrides = &mapStore{m: map[string]string{}}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetDefaultTemplate replaces the process default template.
func (e *Engine) SetDefaultTemplate(tmpl string) {
	e.mu.Lock()
	e.defaultTemplate = tmpl
	e.mu.Unlock()
}

// DefaultTemplateText returns the current process default template.
func (e *Engine) DefaultTemplateText() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.defaultTemplate
}

// SetCategoryTemplate sets a per-category template override.
func (e *Engine) SetCategoryTemplate(category, tmpl string) error {
	return e.overrides.SetTemplate(category, tmpl)
}

// CategoryTemplate returns the category's template, falling back to the
// process default when no override exists.
func (e *Engine) CategoryTemplate(category string) string {
	if t, ok := e.overrides.Template(category); ok {
		return t
	}
	return e.DefaultTemplateText()
}

// Format renders an event. Text substitutes tokens into the category's
// template; JSON ignores templates and produces the fixed record shape.
// Unknown tokens render literally; missing optional fields render empty.
// Format never fails on event content.
func (e *Engine) Format(ev *core.Event, kind Kind) []byte {
	var buf bytes.Buffer
	buf.Grow(256)
	e.FormatTo(ev, kind, &buf)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// FormatTo renders an event into the caller's buffer, avoiding the copy
// that Format makes. Sinks that own a scratch buffer use this path.
func (e *Engine) FormatTo(ev *core.Event, kind Kind, buf *bytes.Buffer) {
	if kind == JSON {
		e.appendJSON(ev, buf)
		return
	}
	e.template(ev.Category).render(ev, e.timestampFormat, buf)
}

// template returns the compiled form of the category's effective
// template, compiling and caching it on first use.
func (e *Engine) template(category string) *compiled {
	text := e.CategoryTemplate(category)
	if c, ok := e.compiled.Load(text); ok {
		return c.(*compiled)
	}
	c := compile(text)
	e.compiled.Store(text, c)
	return c
}
