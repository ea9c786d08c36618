// Package config loads, normalizes, and validates sedori configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML or YAML files, and honours environment fallbacks such
// as SEDORI_NTFY_TOPIC (optionally sourced from a .env file). The Config type
// centralizes every knob the CLI needs: data locations, store backend, match
// thresholds, metric weights, the profit model, and notification settings.
//
// The similarity engine and alert store never read this package implicitly;
// callers convert it into explicit values (thresholds, profit model) once per
// run and pass those into each operation.
package config
