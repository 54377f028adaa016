// Package config loads, normalizes, and validates promptq configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PROMPTQ_API_KEY. The Config type centralizes every knob the CLI needs,
// allowing the data directory, task-service credentials, and segmentation
// thresholds to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
