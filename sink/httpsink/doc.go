// Package httpsink ships log batches to a generic HTTP collector.
//
// The wire payload is a JSON object with a single "events" array; each
// record carries an ISO-8601 timestamp, level name, category, message
// and an optional free-form context object. Authentication, when
// configured, is a bearer token. Bodies can optionally be gzipped.
package httpsink
