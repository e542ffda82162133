// Package config loads, normalizes, and validates eta configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ETA_WEIGHTS_CACHE. The Config type centralizes the knobs the CLI and the
// supporting packages need: where logs, weights and the container catalog
// live, how logs are rendered, and how records files are written.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
