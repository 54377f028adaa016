// Package tasks wraps the remote task-execution service API. A submission
// creates a session the service works on asynchronously; the client only
// confirms acceptance and hands back the session handle.
package tasks
