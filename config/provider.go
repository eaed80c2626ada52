package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/loggate/loggate/core"
)

// FileProvider reads configuration from a YAML file and hands out
// immutable snapshots. Reload swaps the snapshot atomically and notifies
// subscribers; a failed reload keeps the previous snapshot in place.
type FileProvider struct {
	path string
	diag *zap.Logger

	current atomic.Pointer[Config]

	mu      sync.Mutex
	subs    map[int]func(*Config)
	nextSub int
	watcher *fsnotify.Watcher
	done    chan struct{}
	loopWG  sync.WaitGroup
	closed  bool
}

// ProviderOption adjusts a FileProvider at construction.
type ProviderOption func(*FileProvider)

// WithDiagnostics routes reload and watch failures to the given logger.
// The provider is silent by default.
func WithDiagnostics(diag *zap.Logger) ProviderOption {
	return func(p *FileProvider) {
		if diag != nil {
			p.diag = diag
		}
	}
}

// NewFileProvider loads the file once and fails when it is missing or
// invalid. The returned provider serves that snapshot until Reload.
func NewFileProvider(path string, opts ...ProviderOption) (*FileProvider, error) {
	p := &FileProvider{
		path: path,
		diag: zap.NewNop(),
		subs: make(map[int]func(*Config)),
	}
	for _, opt := range opts {
		opt(p)
	}
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	p.current.Store(cfg)
	return p, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Config returns the current snapshot. The snapshot is shared and must
// not be mutated.
func (p *FileProvider) Config() *Config {
	return p.current.Load()
}

// Reload re-reads the file. On success the new snapshot replaces the old
// one and every subscriber is invoked with it; on failure the old
// snapshot stays and the error is returned.
func (p *FileProvider) Reload() error {
	cfg, err := loadFile(p.path)
	if err != nil {
		p.diag.Warn("config reload failed, keeping previous snapshot",
			zap.String("path", p.path),
			zap.Error(err))
		return err
	}
	p.current.Store(cfg)

	p.mu.Lock()
	fns := make([]func(*Config), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	// Callbacks run outside the lock so a subscriber may call back into
	// the provider.
	for _, fn := range fns {
		fn(cfg)
	}
	return nil
}

// Subscription detaches one subscriber when closed.
type Subscription struct {
	once sync.Once
	p    *FileProvider
	id   int
}

// Close removes the subscriber. Other subscribers are unaffected.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.p.mu.Lock()
		delete(s.p.subs, s.id)
		s.p.mu.Unlock()
	})
}

// Subscribe registers fn to run on every successful reload. It is also
// invoked immediately with the current snapshot, so a subscriber never
// has to special-case startup.
func (p *FileProvider) Subscribe(fn func(*Config)) *Subscription {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	fn(p.Config())
	return &Subscription{p: p, id: id}
}

// Watch starts a filesystem watcher that reloads on every write to the
// file. It watches the parent directory so editors that replace the file
// are picked up too. Watch runs until Close.
func (p *FileProvider) Watch() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("%w: provider", core.ErrClosed)
	}
	if p.watcher != nil {
		return fmt.Errorf("%w: already watching", core.ErrConflict)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(p.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", p.path, err)
	}
	p.watcher = w
	p.done = make(chan struct{})
	p.loopWG.Add(1)
	go p.watchLoop(w, p.done)
	return nil
}

func (p *FileProvider) watchLoop(w *fsnotify.Watcher, done chan struct{}) {
	defer p.loopWG.Done()
	target := filepath.Clean(p.path)
	for {
		select {
		case <-done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			_ = p.Reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			p.diag.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher and drops all subscribers. It is idempotent.
func (p *FileProvider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	w := p.watcher
	done := p.done
	p.watcher = nil
	p.subs = make(map[int]func(*Config))
	p.mu.Unlock()

	if w != nil {
		close(done)
		w.Close()
		p.loopWG.Wait()
	}
	return nil
}
