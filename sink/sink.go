package sink

import (
	"github.com/loggate/loggate/core"
)

// Sink is a delivery endpoint for filtered log events.
//
// Write is best-effort: local sinks write synchronously and fast, network
// sinks enqueue into their own buffer and return immediately. A Write
// error is reported by the router to its diagnostics channel; it never
// reaches the application's logging call.
//
// Flush forces delivery of buffered events and returns once the delivery
// attempt has been submitted (not necessarily completed). Close performs
// a final flush and marks the sink inert; calling it again is a no-op.
type Sink interface {
	// Name is a descriptive, not necessarily unique, identifier used
	// in diagnostics.
	Name() string

	Write(ev *core.Event) error
	Flush() error
	Close() error
}

// maxReasonLen caps failure reasons recorded to diagnostics.
const maxReasonLen = 256

// TruncateReason shortens an error message for the diagnostics channel.
func TruncateReason(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxReasonLen {
		return msg[:maxReasonLen] + "..."
	}
	return msg
}
