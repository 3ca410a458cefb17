// SPDX-License-Identifier: Apache-2.0

package config

import "strings"

// validate checks that the final merged [StructuredConfig] satisfies the
// engine's invariants before it is used at startup. The outbox must live in a
// file: an in-memory store would lose pending mutations across restarts.
//
// Returns nil if the configuration is valid, or a descriptive sentinel
// otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, "memory") {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.Endpoint == "" || cfg.Adapter.RequestTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Sync.Interval <= 0 || cfg.Sync.BatchSize <= 0 || cfg.Sync.MaxRetries <= 0 {
		return ErrInvalidSyncConfigs
	}

	if cfg.Sync.BackoffMin <= 0 || cfg.Sync.BackoffMax < cfg.Sync.BackoffMin {
		return ErrInvalidSyncConfigs
	}

	return nil
}
