// Package config loads, normalizes, and validates jingleid configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// JINGLEID_FFMPEG and JINGLEID_CHECKPOINT. The Config type centralizes the
// fingerprint parameters, matching tolerances, decoder settings and logging
// knobs so the CLI and library packages agree on one set of values.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
