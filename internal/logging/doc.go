// Package logging constructs the slog loggers used across promptq.
//
// It provides console and JSON handlers, typed attribute helpers, and
// standardized field keys (component, owner, item, run) so the CLI and the
// run engine emit uniform structured logs. Obtain loggers through New or
// NewFromConfig; use NewComponentLogger to tag a subsystem.
package logging
