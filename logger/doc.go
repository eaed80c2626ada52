// Package logger provides the user-facing front-end of the pipeline: a
// category-bound Logger with leveled and formatted methods over an
// explicit Router, and a slog.Handler bridge for code written against
// the standard library logger.
//
// There is deliberately no package-level default logger. Every Logger is
// constructed against a Router the caller owns, which keeps lifetimes
// explicit and makes tests hermetic.
package logger
