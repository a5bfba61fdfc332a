// Package logging assembles the slog loggers used by jingleid.
//
// It owns the console and JSON handlers, the level and output plumbing, and a
// few context helpers so a batch of predictions can share a correlation ID.
// NewNop returns a discarding logger for tests and optional wiring.
package logging
