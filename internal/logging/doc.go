// Package logging assembles structured slog loggers and formatting helpers used
// across eta commands and packages.
//
// It owns the configurable console/JSON handlers and centralizes level and
// output plumbing: terminals get the configured format while log files always
// receive JSON lines. Components derive their logger with NewComponentLogger
// and default to the no-op logger from NewNop when the caller passes none.
package logging
