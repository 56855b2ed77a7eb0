// Package logging assembles the structured slog loggers used across
// storyloom components.
//
// It centralizes level and output plumbing and exposes context-aware helpers
// so pipeline code automatically tags log lines with job IDs and stage names.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
