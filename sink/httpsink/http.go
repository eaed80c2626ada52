package httpsink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/loggate/loggate/core"
	"github.com/loggate/loggate/sink"
)

// Config configures the generic HTTP collector sink.
type Config struct {
	// URL of the collector endpoint the batches are POSTed to. Required.
	URL string

	// Token, when set, is sent as "Authorization: Bearer <token>".
	Token string

	// Gzip compresses request bodies and sets Content-Encoding.
	Gzip bool

	// BatchSize defaults to 100 events.
	BatchSize int

	// FlushInterval defaults to 2 seconds.
	FlushInterval time.Duration

	// MinLevel is the sink's own filter, applied after the router's
	// category filter.
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

	// Name defaults to "http".
	Name string
}

// record is one log event on the wire.
type record struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Category  string                 `json:"category"`
	Message   string                 `json:"message"`
	Frame     uint64                 `json:"frame,omitempty"`
	Thread    string                 `json:"thread,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// payload is the request body: a single object with one array field.
type payload struct {
	Events []record `json:"events"`
}

// HTTPSink ships event batches to a generic HTTP collector as a JSON
// object with an "events" array. Delivery is at-most-once; see
// sink.Batcher for the shared batching semantics.
type HTTPSink struct {
	name    string
	url     string
	token   string
	gzip    bool
	client  *http.Client
	batcher *sink.Batcher
}

// New validates the configuration and starts the sink. A missing URL or
// invalid batch parameters fail with core.ErrInvalidArgument.
func New(cfg Config) (*HTTPSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: empty collector URL", core.ErrInvalidArgument)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Name == "" {
		cfg.Name = "http"
	}

	s := &HTTPSink{
		name:   cfg.Name,
		url:    cfg.URL,
		token:  cfg.Token,
		gzip:   cfg.Gzip,
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
func (s *HTTPSink) Name() string { return s.name }

// Write enqueues the event into the batch buffer and returns immediately.
func (s *HTTPSink) Write(ev *core.Event) error { return s.batcher.Write(ev) }

// Flush forces a batch delivery regardless of thresholds.
func (s *HTTPSink) Flush() error { return s.batcher.Flush() }

// Close flushes, waits for in-flight deliveries and marks the sink inert.
func (s *HTTPSink) Close() error { return s.batcher.Close() }

// Stats exposes the sink's delivery counters.
func (s *HTTPSink) Stats() sink.Snapshot { return s.batcher.Stats() }

// deliver serializes one snapshot and POSTs it. Runs on a delivery
// goroutine, never on a Dispatch caller.
func (s *HTTPSink) deliver(events []*core.Event) error {
	body := payload{Events: make([]record, len(events))}
	for i, ev := range events {
		body.Events[i] = record{
			Timestamp: ev.Time.UTC().Format(time.RFC3339Nano),
			Level:     ev.Level.String(),
			Category:  ev.Category,
			Message:   ev.Message,
			Frame:     ev.Frame,
			Thread:    ev.ThreadName,
			Context:   sink.ContextMap(ev.Context),
		}
	}

	var buf bytes.Buffer
	if s.gzip {
		gw := gzip.NewWriter(&buf)
		if err := json.NewEncoder(gw).Encode(body); err != nil {
			return fmt.Errorf("%w: encode: %v", core.ErrDeliveryFailure, err)
		}
		if err := gw.Close(); err != nil {
			return fmt.Errorf("%w: gzip: %v", core.ErrDeliveryFailure, err)
		}
	} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("%w: encode: %v", core.ErrDeliveryFailure, err)
	}

	req, err := http.NewRequest(http.MethodPost, s.url, &buf)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrDeliveryFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrDeliveryFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", core.ErrDeliveryFailure, resp.StatusCode)
	}
	return nil
}
