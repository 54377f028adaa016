package executor

import "sync/atomic"

// Flag is a cooperative pause request. The run loop polls it between
// submissions only; an in-flight request is never interrupted.
type Flag struct {
	v atomic.Bool
}

// Set requests a pause before the next submission.
func (f *Flag) Set() {
	f.v.Store(true)
}

// Clear withdraws a pause request.
func (f *Flag) Clear() {
	f.v.Store(false)
}

// IsSet reports whether a pause has been requested.
func (f *Flag) IsSet() bool {
	return f != nil && f.v.Load()
}
