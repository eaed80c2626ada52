package elasticsink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/loggate/loggate/core"
	"github.com/loggate/loggate/sink"
)

// Config configures an Elasticsearch sink.
type Config struct {
	// ServerURL is the base URL of the Elasticsearch cluster. Required.
	ServerURL string

	// Index receives the documents; defaults to "logs".
	Index string

	// APIKey, when set, is sent as "Authorization: ApiKey <key>".
	APIKey string

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

	// Name defaults to "elasticsearch".
	Name string
}

// document is the ECS-flavored shape indexed per event.
type document struct {
	Timestamp string                 `json:"@timestamp"`
	LogLevel  string                 `json:"log.level"`
	Logger    string                 `json:"log.logger"`
	Message   string                 `json:"message"`
	Frame     uint64                 `json:"frame,omitempty"`
	Thread    string                 `json:"process.thread.name,omitempty"`
	Stack     string                 `json:"error.stack_trace,omitempty"`
	Labels    map[string]interface{} `json:"labels,omitempty"`
}

// ElasticSink ships event batches to Elasticsearch using the _bulk API:
// alternating index-action and document lines of newline-delimited JSON.
type ElasticSink struct {
	name    string
	url     string
	index   string
	apiKey  string
	client  *http.Client
	batcher *sink.Batcher
}

// New validates the configuration and starts the sink.
func New(cfg Config) (*ElasticSink, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("%w: empty Elasticsearch URL", core.ErrInvalidArgument)
	}
	if cfg.Index == "" {
		cfg.Index = "logs"
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
		cfg.Name = "elasticsearch"
	}

	s := &ElasticSink{
		name:   cfg.Name,
		url:    strings.TrimRight(cfg.ServerURL, "/") + "/_bulk",
		index:  cfg.Index,
		apiKey: cfg.APIKey,
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
func (s *ElasticSink) Name() string { return s.name }

// Write enqueues the event into the batch buffer and returns immediately.
func (s *ElasticSink) Write(ev *core.Event) error { return s.batcher.Write(ev) }

// Flush forces a batch delivery regardless of thresholds.
func (s *ElasticSink) Flush() error { return s.batcher.Flush() }

// Close flushes, waits for in-flight deliveries and marks the sink inert.
func (s *ElasticSink) Close() error { return s.batcher.Close() }

// Stats exposes the sink's delivery counters.
func (s *ElasticSink) Stats() sink.Snapshot { return s.batcher.Stats() }

// deliver serializes one snapshot in bulk format and POSTs it.
func (s *ElasticSink) deliver(events []*core.Event) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf) // Encode appends the newline bulk needs

	action := map[string]map[string]string{"index": {"_index": s.index}}
	for _, ev := range events {
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("%w: encode action: %v", core.ErrDeliveryFailure, err)
		}
		doc := document{
			Timestamp: ev.Time.UTC().Format(time.RFC3339Nano),
			LogLevel:  ev.Level.String(),
			Logger:    ev.Category,
			Message:   ev.Message,
			Frame:     ev.Frame,
			Thread:    ev.ThreadName,
			Stack:     ev.Stack,
			Labels:    sink.ContextMap(ev.Context),
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("%w: encode document: %v", core.ErrDeliveryFailure, err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, s.url, &buf)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrDeliveryFailure, err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+s.apiKey)
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
