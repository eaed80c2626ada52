// Package sentrysink forwards log events to a Sentry store endpoint.
// Each event in a batch becomes one POST to /api/{project}/store/ with a
// generated event id and the X-Sentry-Auth header. The sink defaults to
// an Error minimum level since Sentry is an error tracker, not a log
// aggregator.
package sentrysink
