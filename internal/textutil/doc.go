// Package textutil sanitizes free-form strings into filesystem-safe tokens,
// used for per-owner lock file names.
package textutil
