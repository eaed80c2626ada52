package seqsink

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

// clefContentType is the media type Seq expects for compact log event
// format payloads.
const clefContentType = "application/vnd.serilog.clef"

// Config configures a Seq sink.
type Config struct {
	// ServerURL is the base URL of the Seq server. Required.
	ServerURL string

	// APIKey, when set, is sent as the X-Seq-ApiKey header.
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

	// Name defaults to "seq".
	Name string
}

// SeqSink ships event batches to a Seq server as newline-delimited CLEF
// records POSTed to /api/events/raw.
type SeqSink struct {
	name    string
	url     string
	apiKey  string
	client  *http.Client
	batcher *sink.Batcher
}

// New validates the configuration and starts the sink.
func New(cfg Config) (*SeqSink, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("%w: empty Seq server URL", core.ErrInvalidArgument)
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
		cfg.Name = "seq"
	}

	s := &SeqSink{
		name:   cfg.Name,
		url:    strings.TrimRight(cfg.ServerURL, "/") + "/api/events/raw",
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
func (s *SeqSink) Name() string { return s.name }

// Write enqueues the event into the batch buffer and returns immediately.
func (s *SeqSink) Write(ev *core.Event) error { return s.batcher.Write(ev) }

// Flush forces a batch delivery regardless of thresholds.
func (s *SeqSink) Flush() error { return s.batcher.Flush() }

// Close flushes, waits for in-flight deliveries and marks the sink inert.
func (s *SeqSink) Close() error { return s.batcher.Close() }

// Stats exposes the sink's delivery counters.
func (s *SeqSink) Stats() sink.Snapshot { return s.batcher.Stats() }

// clefLevel maps pipeline levels onto Seq's level names.
func clefLevel(l core.Level) string {
	switch l {
	case core.TraceLevel:
		return "Verbose"
	case core.DebugLevel:
		return "Debug"
	case core.InfoLevel:
		return "Information"
	case core.WarnLevel:
		return "Warning"
	case core.ErrorLevel:
		return "Error"
	default:
		return "Fatal"
	}
}

// deliver serializes one snapshot as newline-delimited CLEF and POSTs it.
func (s *SeqSink) deliver(events []*core.Event) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf) // Encode appends the newline CLEF needs

	for _, ev := range events {
		rec := map[string]interface{}{
			"@t":       ev.Time.UTC().Format(time.RFC3339Nano),
			"@l":       clefLevel(ev.Level),
			"@m":       ev.Message,
			"Category": ev.Category,
		}
		if ev.Frame != 0 {
			rec["Frame"] = ev.Frame
		}
		if ev.ThreadName != "" {
			rec["Thread"] = ev.ThreadName
		}
		if ev.Stack != "" {
			rec["@x"] = ev.Stack
		}
		for _, f := range ev.Context {
			// CLEF reserves the @ prefix for built-ins.
			key := f.Key
			if strings.HasPrefix(key, "@") {
				key = "@" + key
			}
			rec[key] = sink.FieldValue(f)
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("%w: encode: %v", core.ErrDeliveryFailure, err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, s.url, &buf)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrDeliveryFailure, err)
	}
	req.Header.Set("Content-Type", clefContentType)
	if s.apiKey != "" {
		req.Header.Set("X-Seq-ApiKey", s.apiKey)
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
