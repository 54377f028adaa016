// Package queue persists submission items in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema migrations, stats queries,
// and the per-owner list cache. Items capture the original prompt, the ordered
// remaining subtasks, schedule metadata, and error state so the executor and
// scheduler can coordinate without additional process state.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or columns, add a migration under migrations/.
package queue
