// Package config loads the sync engine configuration from environment
// variables, command-line flags, an optional JSON file, and built-in
// defaults, merging them in that priority order and validating the result.
package config
