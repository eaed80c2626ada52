package template

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/loggate/loggate/core"
)

func testEvent() *core.Event {
	return &core.Event{
		Time:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Level:    core.InfoLevel,
		Category: "Game",
		Message:  "hello",
	}
}

func TestTextRoundTrip(t *testing.T) {
	e := NewEngine(nil, WithDefaultTemplate("{level} {category} {message}"))

	got := string(e.Format(testEvent(), Text))
	if got != "Info Game hello" {
		t.Errorf("Format = %q, want %q", got, "Info Game hello")
	}
}

func TestUnknownTokenPassesThrough(t *testing.T) {
	e := NewEngine(nil, WithDefaultTemplate("{foo} {message}"))

	got := string(e.Format(testEvent(), Text))
	if got != "{foo} hello" {
		t.Errorf("Format = %q, want %q", got, "{foo} hello")
	}
}

func TestTokenCaseInsensitive(t *testing.T) {
	e := NewEngine(nil, WithDefaultTemplate("{LEVEL} {Category} {MeSsAgE}"))

	got := string(e.Format(testEvent(), Text))
	if got != "Info Game hello" {
		t.Errorf("Format = %q, want %q", got, "Info Game hello")
	}
}

func TestNewlineToken(t *testing.T) {
	e := NewEngine(nil, WithDefaultTemplate("{message}{newline}"))

	got := string(e.Format(testEvent(), Text))
	if got != "hello\n" {
		t.Errorf("Format = %q, want %q", got, "hello\n")
	}
}

func TestUnmatchedBraceIsLiteral(t *testing.T) {
	e := NewEngine(nil, WithDefaultTemplate("{message} {unclosed"))

	got := string(e.Format(testEvent(), Text))
	if got != "hello {unclosed" {
		t.Errorf("Format = %q, want %q", got, "hello {unclosed")
	}
}

func TestMissingOptionalFieldsRenderEmpty(t *testing.T) {
	e := NewEngine(nil, WithDefaultTemplate("[{frame}][{thread}][{file}][{line}][{stacktrace}]"))

	got := string(e.Format(testEvent(), Text))
	if got != "[][][][][]" {
		t.Errorf("Format = %q, want empty optional tokens", got)
	}
}

func TestOptionalFieldTokens(t *testing.T) {
	ev := testEvent()
	ev.Frame = 120
	ev.ThreadName = "main"
	ev.Caller = core.CallerInfo{ShortFile: "game.go", Line: 17, Defined: true}

	e := NewEngine(nil, WithDefaultTemplate("{frame} {thread} {file}:{line}"))
	got := string(e.Format(ev, Text))
	if got != "120 main game.go:17" {
		t.Errorf("Format = %q", got)
	}
}

func TestTimestampToken(t *testing.T) {
	e := NewEngine(nil, WithDefaultTemplate("{timestamp}"))

	got := string(e.Format(testEvent(), Text))
	if got != "2025-06-01T12:00:00Z" {
		t.Errorf("Format = %q, want RFC3339 timestamp", got)
	}
}

func TestCategoryOverrideFallback(t *testing.T) {
	e := NewEngine(nil, WithDefaultTemplate("default {message}"))
	if err := e.SetCategoryTemplate("Net", "net {message}"); err != nil {
		t.Fatalf("SetCategoryTemplate: %v", err)
	}

	ev := testEvent()
	ev.Category = "Net"
	if got := string(e.Format(ev, Text)); got != "net hello" {
		t.Errorf("override Format = %q", got)
	}

	ev.Category = "Other"
	if got := string(e.Format(ev, Text)); got != "default hello" {
		t.Errorf("fallback Format = %q", got)
	}

	if got := e.CategoryTemplate("Other"); got != "default {message}" {
		t.Errorf("CategoryTemplate fallback = %q", got)
	}
}

func TestJSONFixedShape(t *testing.T) {
	ev := testEvent()
	ev.Frame = 7
	ev.ThreadID = 3
	ev.ThreadName = "worker"
	ev.Context = []core.Field{
		core.String("player", "p1"),
		core.Int("score", 10),
		core.Bool("alive", true),
	}

	// Template must not leak into JSON output.
	e := NewEngine(nil, WithDefaultTemplate("{foo} nothing useful"))
	out := e.Format(ev, JSON)

	var rec map[string]interface{}
	if err := json.Unmarshal(out, &rec); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}

	if rec["timestamp"] != "2025-06-01T12:00:00Z" {
		t.Errorf("timestamp = %v", rec["timestamp"])
	}
	if rec["level"] != "Info" {
		t.Errorf("level = %v", rec["level"])
	}
	if rec["category"] != "Game" {
		t.Errorf("category = %v", rec["category"])
	}
	if rec["message"] != "hello" {
		t.Errorf("message = %v", rec["message"])
	}
	if rec["frame"] != float64(7) {
		t.Errorf("frame = %v", rec["frame"])
	}
	ctx, ok := rec["context"].(map[string]interface{})
	if !ok {
		t.Fatalf("context missing: %s", out)
	}
	if ctx["player"] != "p1" || ctx["score"] != float64(10) || ctx["alive"] != true {
		t.Errorf("context = %v", ctx)
	}
}

func TestJSONOmitsAbsentOptionalFields(t *testing.T) {
	e := NewEngine(nil)
	out := string(e.Format(testEvent(), JSON))

	for _, field := range []string{"frame", "thread", "caller", "stack", "context"} {
		if strings.Contains(out, `"`+field+`"`) {
			t.Errorf("JSON output contains absent field %q: %s", field, out)
		}
	}
}

func TestJSONEscaping(t *testing.T) {
	ev := testEvent()
	ev.Message = "line1\nline2 \"quoted\" \\slash"

	e := NewEngine(nil)
	var rec map[string]interface{}
	if err := json.Unmarshal(e.Format(ev, JSON), &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rec["message"] != ev.Message {
		t.Errorf("message round-trip = %q", rec["message"])
	}
}

func TestRegistryBackedOverrides(t *testing.T) {
	store := &mapStore{m: map[string]string{}}
	e := NewEngine(store)

	if err := e.SetCategoryTemplate("AI", "{message}!"); err != nil {
		t.Fatalf("SetCategoryTemplate: %v", err)
	}
	if tmpl, ok := store.Template("AI"); !ok || tmpl != "{message}!" {
		t.Errorf("override not written through store: %q (%v)", tmpl, ok)
	}
}
