// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the sync
// engine. It aggregates all sub-configurations and is populated by merging
// values from environment variables, command-line flags, an optional JSON
// file, and built-in defaults.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings such as the user account and the
	// log file location.
	App App `envPrefix:"APP_"`

	// Storage holds configuration for the local persistence backend.
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter holds network settings for the remote task store.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Sync holds cycle scheduling, batching, and retry settings.
	Sync Sync `envPrefix:"SYNC_"`

	// Health holds thresholds used by the health monitor.
	Health Health `envPrefix:"HEALTH_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged below the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values.
type App struct {
	// UserID is the account the installation belongs to.
	// Env: APP_USER_ID
	UserID string `env:"USER_ID"`

	// LogPath is the rotating log file location. Empty means stdout.
	// Env: APP_LOG_PATH
	LogPath string `env:"LOG_PATH"`
}

// Storage groups the configuration for the local persistence backend.
type Storage struct {
	// DB holds the local database settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local SQLite database.
type DB struct {
	// DSN is the SQLite file path used to open the local database
	// (e.g. "~/.taskdeck/sync.db").
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Adapter holds network settings for the remote task store.
type Adapter struct {
	// Endpoint is the base URL of the remote task store
	// (e.g. "https://sync.taskdeck.io").
	// Env: ADAPTER_ENDPOINT
	Endpoint string `env:"ENDPOINT"`

	// RequestTimeout bounds every outbound request. Cycles have no explicit
	// cancellation, so this timeout is what bounds a stuck cycle.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Sync holds cycle scheduling, batching, and retry settings.
type Sync struct {
	// Interval is the cadence of background auto sync.
	// Env: SYNC_INTERVAL
	Interval time.Duration `env:"INTERVAL"`

	// Debounce is how long a burst of local mutations is coalesced before
	// one auto cycle is requested.
	// Env: SYNC_DEBOUNCE
	Debounce time.Duration `env:"DEBOUNCE"`

	// BatchSize caps how many outbox entries one push sends.
	// Env: SYNC_BATCH_SIZE
	BatchSize int `env:"BATCH_SIZE"`

	// MaxRetries is how many failed push attempts an outbox entry gets
	// before it is surfaced as a terminal failure.
	// Env: SYNC_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// BackoffMin and BackoffMax bound the exponential retry backoff after
	// transient cycle failures.
	// Env: SYNC_BACKOFF_MIN / SYNC_BACKOFF_MAX
	BackoffMin time.Duration `env:"BACKOFF_MIN"`
	BackoffMax time.Duration `env:"BACKOFF_MAX"`
}

// Health holds thresholds used by the health monitor.
type Health struct {
	// CredentialExpiryWarn is how close to credential expiry a warning is
	// raised.
	// Env: HEALTH_CREDENTIAL_EXPIRY_WARN
	CredentialExpiryWarn time.Duration `env:"CREDENTIAL_EXPIRY_WARN"`

	// FailureStreak is the consecutive-failure count above which the report
	// escalates to error severity.
	// Env: HEALTH_FAILURE_STREAK
	FailureStreak int `env:"FAILURE_STREAK"`

	// StaleAfter is how long without a completed cycle before sync is
	// reported stale.
	// Env: HEALTH_STALE_AFTER
	StaleAfter time.Duration `env:"STALE_AFTER"`
}

// GetConfig loads, merges, and validates the engine configuration from all
// available sources in the following priority order (first source wins for
// non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//  4. Built-in defaults
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		withDefaults().
		build()
}

// defaults returns the built-in fallback configuration merged beneath every
// other source.
func defaults() *StructuredConfig {
	return &StructuredConfig{
		Storage: Storage{DB: DB{DSN: "taskdeck-sync.db"}},
		Adapter: Adapter{RequestTimeout: 30 * time.Second},
		Sync: Sync{
			Interval:   5 * time.Minute,
			Debounce:   3 * time.Second,
			BatchSize:  100,
			MaxRetries: 5,
			BackoffMin: time.Second,
			BackoffMax: 5 * time.Minute,
		},
		Health: Health{
			CredentialExpiryWarn: 24 * time.Hour,
			FailureStreak:        3,
			StaleAfter:           30 * time.Minute,
		},
	}
}
