// Package logs reads the promptq log file with bounded memory: the last N
// lines for a snapshot, or a polling follow that surfaces new lines until the
// caller's context ends. Backs `promptq logs`.
package logs
