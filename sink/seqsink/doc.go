// Package seqsink ships log batches to a Seq server in the compact log
// event format (CLEF): one JSON object per line, POSTed to
// /api/events/raw with the X-Seq-ApiKey header when configured.
package seqsink
