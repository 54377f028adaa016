// Package segment splits a free-form prompt into ordered candidate subtasks.
//
// Analyze chooses the first matching strategy: explicit task-stub blocks,
// "Task N:" headings, blank-line paragraphs, or none. Sequence turns the
// user-pruned drafts into numbered, self-contained submission units, and
// Validate reports blocking errors and advisory warnings before anything is
// submitted or queued. Everything here is pure; persistence and submission
// live elsewhere.
package segment
