// Package config loads, normalizes, and validates animap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and ANIMAP_DATA_DIR. The Config type centralizes every knob the
// resolver, gateways, crawler and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
