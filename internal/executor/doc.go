// Package executor drives queue items through the task service one submission
// at a time. A run drains an owner's queue in creation order, persists
// progress after every accepted unit, and delegates failure handling to a
// Resolver so interactive and scripted callers share the same loop.
package executor
