package sentrysink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loggate/loggate/core"
	"github.com/loggate/loggate/sink"
)

// Config configures a Sentry-style error-tracking sink.
type Config struct {
	// ServerURL is the base URL of the Sentry-compatible server. Required.
	ServerURL string

	// ProjectID selects the project the events are stored under. Required.
	ProjectID string

	// Key is the public key carried in the X-Sentry-Auth header.
	Key string

	// BatchSize defaults to 20 events; error traffic is expected to be
	// sparse.
	BatchSize int

	// FlushInterval defaults to 5 seconds.
	FlushInterval time.Duration

	// MinLevel defaults to Error when left unset: an error tracker has
	// no use for routine traffic. It composes with the router's
	// category filter, both must pass.
	MinLevel core.Level

	// Timeout of a delivery attempt; defaults to 5 seconds. Ignored
	// when Client is set.
	Timeout time.Duration

	// Client overrides the default http.Client.
	Client *http.Client

	// Clock defaults to the system clock.
	Clock core.Clock

	// Diagnostics receives delivery failures.
	Diagnostics *zap.Logger

	// Name defaults to "sentry".
	Name string
}

// storeEvent is the per-event payload of the store endpoint.
type storeEvent struct {
	EventID   string                 `json:"event_id"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Logger    string                 `json:"logger"`
	Message   string                 `json:"message"`
	Platform  string                 `json:"platform"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
	Culprit   string                 `json:"culprit,omitempty"`
	Stack     string                 `json:"stacktrace,omitempty"`
}

// SentrySink forwards high-severity events to a Sentry-style store
// endpoint, one request per event within a delivery attempt. Its default
// minimum level is Error, a stricter second filter stage than the
// router's category filter.
type SentrySink struct {
	name    string
	url     string
	auth    string
	client  *http.Client
	batcher *sink.Batcher
}

// New validates the configuration and starts the sink.
func New(cfg Config) (*SentrySink, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("%w: empty Sentry server URL", core.ErrInvalidArgument)
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("%w: empty Sentry project id", core.ErrInvalidArgument)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.MinLevel == core.TraceLevel {
		cfg.MinLevel = core.ErrorLevel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Name == "" {
		cfg.Name = "sentry"
	}

	s := &SentrySink{
		name:   cfg.Name,
		url:    strings.TrimRight(cfg.ServerURL, "/") + "/api/" + cfg.ProjectID + "/store/",
		auth:   fmt.Sprintf("Sentry sentry_version=7, sentry_client=loggate/1.0, sentry_key=%s", cfg.Key),
		client: cfg.Client,
	}

	batcher, err := sink.NewBatcher(sink.BatcherConfig{
		Name:          cfg.Name,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		MinLevel:      cfg.MinLevel,
		Clock:         cfg.Clock,
		Diagnostics:   cfg.Diagnostics,
	}, s.deliver)
	if err != nil {
		return nil, err
	}
	s.batcher = batcher
	return s, nil
}

// Name returns the sink's descriptive name.
func (s *SentrySink) Name() string { return s.name }

// Write enqueues the event into the batch buffer and returns immediately.
func (s *SentrySink) Write(ev *core.Event) error { return s.batcher.Write(ev) }

// Flush forces a batch delivery regardless of thresholds.
func (s *SentrySink) Flush() error { return s.batcher.Flush() }

// Close flushes, waits for in-flight deliveries and marks the sink inert.
func (s *SentrySink) Close() error { return s.batcher.Close() }

// Stats exposes the sink's delivery counters.
func (s *SentrySink) Stats() sink.Snapshot { return s.batcher.Stats() }

// sentryLevel maps pipeline levels onto Sentry's level names.
func sentryLevel(l core.Level) string {
	switch l {
	case core.TraceLevel, core.DebugLevel:
		return "debug"
	case core.InfoLevel:
		return "info"
	case core.WarnLevel:
		return "warning"
	case core.ErrorLevel:
		return "error"
	default:
		return "fatal"
	}
}

// deliver posts each event of the snapshot to the store endpoint. The
// store API takes one event per request; the first failure aborts the
// attempt and drops the remainder of the snapshot.
func (s *SentrySink) deliver(events []*core.Event) error {
	for _, ev := range events {
		payload := storeEvent{
			EventID:   strings.ReplaceAll(uuid.New().String(), "-", ""),
			Timestamp: ev.Time.UTC().Format(time.RFC3339Nano),
			Level:     sentryLevel(ev.Level),
			Logger:    ev.Category,
			Message:   ev.Message,
			Platform:  "go",
			Extra:     sink.ContextMap(ev.Context),
			Stack:     ev.Stack,
		}
		if ev.Caller.Defined {
			payload.Culprit = fmt.Sprintf("%s:%d", ev.Caller.ShortFile, ev.Caller.Line)
		}

		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return fmt.Errorf("%w: encode: %v", core.ErrDeliveryFailure, err)
		}

		req, err := http.NewRequest(http.MethodPost, s.url, &buf)
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrDeliveryFailure, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Sentry-Auth", s.auth)

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrDeliveryFailure, err)
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("%w: HTTP %d", core.ErrDeliveryFailure, resp.StatusCode)
		}
	}
	return nil
}
