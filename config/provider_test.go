package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/loggate/loggate/category"
	"github.com/loggate/loggate/core"
	"github.com/loggate/loggate/template"
)

func writeConfig(t *testing.T, path, doc string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestProviderLoadsAtConstruction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	writeConfig(t, path, "default_level: Warn\n")

	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}
	defer p.Close()

	if got := p.Config().DefaultLevel; got != "Warn" {
		t.Errorf("DefaultLevel = %q, want \"Warn\"", got)
	}
}

func TestProviderRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	writeConfig(t, path, "default_level: Shout\n")

	if _, err := NewFileProvider(path); err == nil {
		t.Error("NewFileProvider should fail on an unparsable level")
	}
	if _, err := NewFileProvider(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("NewFileProvider should fail on a missing file")
	}
}

func TestReloadSwapsAndBroadcasts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	writeConfig(t, path, "default_level: Info\n")

	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}
	defer p.Close()

	var mu sync.Mutex
	var seen []string
	sub := p.Subscribe(func(c *Config) {
		mu.Lock()
		seen = append(seen, c.DefaultLevel)
		mu.Unlock()
	})
	defer sub.Close()

	// Subscribe delivers the current snapshot up front.
	mu.Lock()
	if len(seen) != 1 || seen[0] != "Info" {
		t.Fatalf("after Subscribe seen = %v", seen)
	}
	mu.Unlock()

	writeConfig(t, path, "default_level: Error\n")
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := p.Config().DefaultLevel; got != "Error" {
		t.Errorf("DefaultLevel after reload = %q", got)
	}
	mu.Lock()
	if len(seen) != 2 || seen[1] != "Error" {
		t.Errorf("after Reload seen = %v", seen)
	}
	mu.Unlock()
}

func TestFailedReloadKeepsOldSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	writeConfig(t, path, "default_level: Info\n")

	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}
	defer p.Close()

	calls := 0
	sub := p.Subscribe(func(*Config) { calls++ })
	defer sub.Close()

	writeConfig(t, path, "default_level: Shout\n")
	if err := p.Reload(); err == nil {
		t.Fatal("Reload with an invalid file should fail")
	}
	if got := p.Config().DefaultLevel; got != "Info" {
		t.Errorf("DefaultLevel = %q, old snapshot should survive", got)
	}
	if calls != 1 {
		t.Errorf("subscriber calls = %d, failed reloads must not broadcast", calls)
	}
}

func TestSubscriptionCloseDetachesOnlyItself(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	writeConfig(t, path, "default_level: Info\n")

	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}
	defer p.Close()

	var aCalls, bCalls int
	subA := p.Subscribe(func(*Config) { aCalls++ })
	subB := p.Subscribe(func(*Config) { bCalls++ })

	subA.Close()
	subA.Close() // closing twice is harmless

	writeConfig(t, path, "default_level: Debug\n")
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if aCalls != 1 {
		t.Errorf("closed subscriber calls = %d, want 1", aCalls)
	}
	if bCalls != 2 {
		t.Errorf("remaining subscriber calls = %d, want 2", bCalls)
	}
	subB.Close()
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	writeConfig(t, path, "default_level: Info\n")

	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}
	defer p.Close()

	if err := p.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := p.Watch(); err == nil {
		t.Error("second Watch should fail")
	}

	writeConfig(t, path, "default_level: Critical\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if p.Config().DefaultLevel == "Critical" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("snapshot did not pick up the file write")
}

func TestApplyProjectsOntoRegistryAndEngine(t *testing.T) {
	cfg, err := Parse([]byte(`
default_level: Warn
default_template: "{level}: {message}{newline}"
categories:
  Physics:
    level: Trace
    template: "{message}{newline}"
  Render:
    level: Error
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	reg := category.NewRegistry(core.InfoLevel)
	eng := template.NewEngine(reg)
	if err := Apply(cfg, reg, eng); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got := reg.DefaultLevel(); got != core.WarnLevel {
		t.Errorf("default level = %v", got)
	}
	if got := reg.MinimumLevel("Physics"); got != core.TraceLevel {
		t.Errorf("Physics level = %v", got)
	}
	if got := reg.MinimumLevel("Render"); got != core.ErrorLevel {
		t.Errorf("Render level = %v", got)
	}
	if got, ok := reg.Template("Physics"); !ok || got != "{message}{newline}" {
		t.Errorf("Physics template = %q, %v", got, ok)
	}
	if got := eng.DefaultTemplateText(); got != "{level}: {message}{newline}" {
		t.Errorf("engine default template = %q", got)
	}

	ev := &core.Event{Time: time.Now().UTC(), Level: core.InfoLevel, Category: "Physics", Message: "step"}
	if got := string(eng.Format(ev, template.Text)); got != "step\n" {
		t.Errorf("Format = %q, category override should win", got)
	}
}
