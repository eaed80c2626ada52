// Package sink defines the Sink capability interface consumed by the
// router and the Batcher state machine shared by batching network sinks.
//
// There is no sink base type: console, file and the network sinks are
// independent implementations of the same small interface, and only the
// accumulate/swap/deliver logic is shared, as a Batcher composed into
// each network sink.
//
// Delivery is at-most-once by design. A failed batch is reported to the
// diagnostics channel and dropped; nothing is retried or requeued. The
// documented trade-off is that transient network failure loses that
// batch, never anything still sitting in the buffer at shutdown:
// Close flushes the buffer and waits for in-flight attempts.
//
// Built-in sinks:
//
//   - consolesink writes template-rendered lines to any io.Writer.
//   - filesink writes to a file through a buffered writer.
//   - httpsink POSTs JSON-array batches to a generic collector endpoint.
//   - seqsink ships CLEF newline-delimited JSON to a Seq server.
//   - elasticsink ships bulk-format ndjson to Elasticsearch.
//   - sentrysink forwards Error-and-above events to a Sentry-style store
//     endpoint.
package sink
