// Package config loads, normalizes, and validates deepcheck configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEMINI_API_KEY, OPENROUTER_API_KEY, and REDIS_URL. The Config type
// centralizes every knob the server and CLI need so the cache backend, oracle
// credentials, and extractor tuning are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
