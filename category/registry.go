package category

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/loggate/loggate/core"
)

// entry is the per-category association: an optional minimum level and an
// optional template override. Rename moves the whole entry so both survive.
type entry struct {
	level       core.Level
	hasLevel    bool
	template    string
	hasTemplate bool
}

// state is an immutable snapshot of the registry. Readers load it through
// an atomic pointer; writers clone it under the mutex and swap it in.
type state struct {
	defaultLevel core.Level
	entries      map[string]entry
}

// Registry owns the category to minimum-severity mapping that the router
// consults on every dispatch. IsEnabled is the hot path: it is lock-free
// and allocation-free, while the rare writes (configuration reloads,
// administrative changes) serialize on a mutex and publish a fresh
// snapshot.
type Registry struct {
	mu    sync.Mutex // serializes writers
	state atomic.Pointer[state]
}

// NewRegistry creates a registry with the given process-wide default
// minimum level. Categories without an explicit entry inherit it.
func NewRegistry(defaultLevel core.Level) *Registry {
	r := &Registry{}
	r.state.Store(&state{
		defaultLevel: defaultLevel,
		entries:      map[string]entry{},
	})
	return r
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty category name", core.ErrInvalidArgument)
	}
	return nil
}

// mutate clones the current state, applies fn to the clone, and publishes
// it. fn may return an error to abort without publishing.
func (r *Registry) mutate(fn func(*state) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.state.Load()
	next := &state{
		defaultLevel: old.defaultLevel,
		entries:      make(map[string]entry, len(old.entries)+1),
	}
	for k, v := range old.entries {
		next.entries[k] = v
	}
	if err := fn(next); err != nil {
		return err
	}
	r.state.Store(next)
	return nil
}

// Register adds a category with the given minimum level, or updates the
// level when the category already exists. A template override set earlier
// is preserved.
func (r *Registry) Register(name string, minLevel core.Level) error {
	if err := validName(name); err != nil {
		return err
	}
	return r.mutate(func(s *state) error {
		e := s.entries[name]
		e.level = minLevel
		e.hasLevel = true
		s.entries[name] = e
		return nil
	})
}

// Unregister removes a category. Subsequent lookups fall back to the
// default level. Removing an absent category is a no-op.
func (r *Registry) Unregister(name string) {
	_ = r.mutate(func(s *state) error {
		delete(s.entries, name)
		return nil
	})
}

// Rename moves a category's level and template association to a new name.
// It fails with core.ErrNotFound when old is absent and core.ErrConflict
// when new already exists; in both cases nothing changes.
func (r *Registry) Rename(old, new string) error {
	if err := validName(new); err != nil {
		return err
	}
	return r.mutate(func(s *state) error {
		e, ok := s.entries[old]
		if !ok {
			return fmt.Errorf("%w: category %q", core.ErrNotFound, old)
		}
		if _, exists := s.entries[new]; exists {
			return fmt.Errorf("%w: category %q already exists", core.ErrConflict, new)
		}
		delete(s.entries, old)
		s.entries[new] = e
		return nil
	})
}

// SetMinimumLevel sets the minimum level for a category, creating the
// entry when needed.
func (r *Registry) SetMinimumLevel(name string, level core.Level) error {
	return r.Register(name, level)
}

// MinimumLevel returns the category's minimum level, or the process-wide
// default when the category has no explicit level.
func (r *Registry) MinimumLevel(name string) core.Level {
	s := r.state.Load()
	if e, ok := s.entries[name]; ok && e.hasLevel {
		return e.level
	}
	return s.defaultLevel
}

// IsEnabled reports whether an event at the given level passes the
// category's minimum-level filter. This is the single predicate the
// router evaluates on every dispatch.
func (r *Registry) IsEnabled(name string, level core.Level) bool {
	s := r.state.Load()
	if e, ok := s.entries[name]; ok && e.hasLevel {
		return level >= e.level
	}
	return level >= s.defaultLevel
}

// SetDefaultLevel changes the process-wide default minimum level.
func (r *Registry) SetDefaultLevel(level core.Level) {
	_ = r.mutate(func(s *state) error {
		s.defaultLevel = level
		return nil
	})
}

// DefaultLevel returns the process-wide default minimum level.
func (r *Registry) DefaultLevel() core.Level {
	return r.state.Load().defaultLevel
}

// SetTemplate sets a per-category template override.
func (r *Registry) SetTemplate(name, template string) error {
	if err := validName(name); err != nil {
		return err
	}
	return r.mutate(func(s *state) error {
		e := s.entries[name]
		e.template = template
		e.hasTemplate = true
		s.entries[name] = e
		return nil
	})
}

// Template returns the category's template override, if any.
func (r *Registry) Template(name string) (string, bool) {
	s := r.state.Load()
	if e, ok := s.entries[name]; ok && e.hasTemplate {
		return e.template, true
	}
	return "", false
}

// ClearTemplate removes a per-category template override, keeping the
// level association intact.
func (r *Registry) ClearTemplate(name string) {
	_ = r.mutate(func(s *state) error {
		e, ok := s.entries[name]
		if !ok {
			return nil
		}
		if !e.hasLevel {
			delete(s.entries, name)
			return nil
		}
		e.template = ""
		e.hasTemplate = false
		s.entries[name] = e
		return nil
	})
}

// Categories returns a sorted snapshot of the registered category names.
func (r *Registry) Categories() []string {
	s := r.state.Load()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
