// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *StructuredConfig {
	return &StructuredConfig{
		Storage: Storage{DB: DB{DSN: "taskdeck-sync.db"}},
		Adapter: Adapter{Endpoint: "https://sync.taskdeck.io", RequestTimeout: 30 * time.Second},
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

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *StructuredConfig)
		wantErr error
	}{
		{
			name:   "valid config passes",
			mutate: func(*StructuredConfig) {},
		},
		{
			name:    "empty dsn",
			mutate:  func(cfg *StructuredConfig) { cfg.Storage.DB.DSN = "" },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "in-memory dsn rejected",
			mutate:  func(cfg *StructuredConfig) { cfg.Storage.DB.DSN = "file::memory:?cache=shared" },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "missing endpoint",
			mutate:  func(cfg *StructuredConfig) { cfg.Adapter.Endpoint = "" },
			wantErr: ErrInvalidAdapterConfigs,
		},
		{
			name:    "zero request timeout",
			mutate:  func(cfg *StructuredConfig) { cfg.Adapter.RequestTimeout = 0 },
			wantErr: ErrInvalidAdapterConfigs,
		},
		{
			name:    "zero interval",
			mutate:  func(cfg *StructuredConfig) { cfg.Sync.Interval = 0 },
			wantErr: ErrInvalidSyncConfigs,
		},
		{
			name:    "zero batch size",
			mutate:  func(cfg *StructuredConfig) { cfg.Sync.BatchSize = 0 },
			wantErr: ErrInvalidSyncConfigs,
		},
		{
			name:    "inverted backoff bounds",
			mutate:  func(cfg *StructuredConfig) { cfg.Sync.BackoffMax = cfg.Sync.BackoffMin / 2 },
			wantErr: ErrInvalidSyncConfigs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDefaults_AreValid(t *testing.T) {
	cfg := defaults()
	cfg.Adapter.Endpoint = "https://sync.taskdeck.io"

	require.NoError(t, cfg.validate(), "defaults plus an endpoint must be a runnable config")
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 100, cfg.Sync.BatchSize)
}

func TestParseJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"app": {"user_id": "user-1", "log_path": "/tmp/sync.log"},
		"storage": {"db": {"dsn": "/tmp/sync.db"}},
		"adapter": {"endpoint": "https://sync.taskdeck.io", "request_timeout": "45s"},
		"sync": {"interval": "10m", "debounce": "2s", "batch_size": 50, "max_retries": 4,
			"backoff_min": "500ms", "backoff_max": "2m"},
		"health": {"credential_expiry_warn": "12h", "failure_streak": 2, "stale_after": "1h"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := parseJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "user-1", cfg.App.UserID)
	assert.Equal(t, "/tmp/sync.db", cfg.Storage.DB.DSN)
	assert.Equal(t, 45*time.Second, cfg.Adapter.RequestTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 50, cfg.Sync.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.BackoffMin)
	assert.Equal(t, 12*time.Hour, cfg.Health.CredentialExpiryWarn)
}

func TestParseJSON_MissingFile(t *testing.T) {
	_, err := parseJSON("/nonexistent/config.json")
	require.Error(t, err)
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{`"1h"`, time.Hour},
		{`"30s"`, 30 * time.Second},
		{`60000000000`, time.Minute},
	}

	for _, tt := range tests {
		var d Duration
		require.NoError(t, json.Unmarshal([]byte(tt.in), &d))
		assert.Equal(t, tt.want, time.Duration(d))
	}

	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`"not a duration"`), &d))
}

func TestConfigBuilder_FirstSourceWins(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{Adapter: Adapter{Endpoint: "https://primary.example.com"}},
		&StructuredConfig{Adapter: Adapter{Endpoint: "https://fallback.example.com"}},
		validConfig(),
	)

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "https://primary.example.com", cfg.Adapter.Endpoint)
	assert.Equal(t, "taskdeck-sync.db", cfg.Storage.DB.DSN, "unset fields fall through")
}
