// Package logging assembles structured slog loggers and formatting helpers used
// across deepcheck.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code tags log lines with the
// request ID, stage, and content fingerprint automatically. When a log
// directory is configured every record is also appended as JSON to
// deepcheck.log. The package provides a no-op logger for tests and wiring code
// that cannot fail.
package logging
