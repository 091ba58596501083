// Package config loads, validates, and normalizes recap configuration from a
// TOML file with sensible defaults for every section. Secrets may be supplied
// through environment variables instead of the file.
package config
