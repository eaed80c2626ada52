// Package core defines the shared types used across the loggate pipeline.
//
// It provides the Level type for severity filtering, the Event type that
// represents a single immutable log event, and the Field type for
// zero-allocation structured key-value context.
//
// Events are plain values constructed at the call site and never mutated
// afterwards. Batching sinks retain references to dispatched events until
// their batch is flushed, so events are deliberately not pooled or
// recycled: immutability is what makes the asynchronous fan-out safe.
//
// Field encodes values into fixed-size numeric slots (Int64, Float64)
// wherever possible so that common types like int, bool, and time.Time
// never escape to the heap. The Any slot exists as a fallback for
// arbitrary types but will cause an allocation.
//
// The Clock interface decouples time-based flush decisions from the wall
// clock; CoarseClock additionally amortizes time.Now syscalls for sinks
// that check elapsed time on every Write.
package core
