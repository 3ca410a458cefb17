package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	App struct {
		UserID  string `json:"user_id"`
		LogPath string `json:"log_path"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
	} `json:"storage,omitempty"`

	Adapter struct {
		Endpoint       string   `json:"endpoint"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter,omitempty"`

	Sync struct {
		Interval   Duration `json:"interval"`
		Debounce   Duration `json:"debounce"`
		BatchSize  int      `json:"batch_size"`
		MaxRetries int      `json:"max_retries"`
		BackoffMin Duration `json:"backoff_min"`
		BackoffMax Duration `json:"backoff_max"`
	} `json:"sync,omitempty"`

	Health struct {
		CredentialExpiryWarn Duration `json:"credential_expiry_warn"`
		FailureStreak        int      `json:"failure_streak"`
		StaleAfter           Duration `json:"stale_after"`
	} `json:"health,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			UserID:  jsonCfg.App.UserID,
			LogPath: jsonCfg.App.LogPath,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
		},
		Adapter: Adapter{
			Endpoint:       jsonCfg.Adapter.Endpoint,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Sync: Sync{
			Interval:   time.Duration(jsonCfg.Sync.Interval),
			Debounce:   time.Duration(jsonCfg.Sync.Debounce),
			BatchSize:  jsonCfg.Sync.BatchSize,
			MaxRetries: jsonCfg.Sync.MaxRetries,
			BackoffMin: time.Duration(jsonCfg.Sync.BackoffMin),
			BackoffMax: time.Duration(jsonCfg.Sync.BackoffMax),
		},
		Health: Health{
			CredentialExpiryWarn: time.Duration(jsonCfg.Health.CredentialExpiryWarn),
			FailureStreak:        jsonCfg.Health.FailureStreak,
			StaleAfter:           time.Duration(jsonCfg.Health.StaleAfter),
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
