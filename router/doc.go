// Package router dispatches log events to registered sinks after the
// per-category severity filter.
//
// Dispatch is the hot path: a lock-free registry lookup short-circuits
// disabled events before any formatting work, and the sink slice is read
// through an atomic pointer so concurrent dispatchers never contend.
// Sink failures and panics are contained at the router boundary and
// reported to a zap diagnostics logger, which is deliberately a separate
// channel from the pipeline to rule out recursion.
package router
