package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-endpoint remote task store base URL
//	-d local database path
//	-user user account ID
//	-log log file path
//	-c/-config json file path with configs
//	-sync-interval background sync cadence (e.g., "5m")
//	-request-timeout outbound request timeout (e.g., "30s")
//	-batch-size max outbox entries per push
func ParseFlags() *StructuredConfig {
	var endpoint string
	var databaseDSN string
	var userID string
	var logPath string
	var jsonConfigPath string
	var syncInterval time.Duration
	var requestTimeout time.Duration
	var batchSize int

	flag.StringVar(&endpoint, "endpoint", "", "Remote task store base URL")
	flag.StringVar(&databaseDSN, "d", "", "Local database path")
	flag.StringVar(&userID, "user", "", "User account ID")
	flag.StringVar(&logPath, "log", "", "Log file path")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync interval (e.g., 5m)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.IntVar(&batchSize, "batch-size", 0, "Max outbox entries per push")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			UserID:  userID,
			LogPath: logPath,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Adapter: Adapter{
			Endpoint:       endpoint,
			RequestTimeout: requestTimeout,
		},
		Sync: Sync{
			Interval:  syncInterval,
			BatchSize: batchSize,
		},
		JSONFilePath: jsonConfigPath,
	}
}
