// Package main hosts the promptq CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into queue
// operations: adding and segmenting prompts, running the submission loop,
// scheduling deferred items, and maintenance. It centralizes configuration
// resolution, store access, and logger setup so subcommands can focus on
// user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
