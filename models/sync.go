package models

import "time"

// ConflictStrategy selects how a true concurrent conflict between a local and
// a remote version of one task is resolved.
type ConflictStrategy string

const (
	// StrategyLastWriteWins keeps the version with the later wall-clock
	// update time; the remote version wins an exact tie.
	StrategyLastWriteWins ConflictStrategy = "last_write_wins"
	// StrategyLocalWins always keeps the local version.
	StrategyLocalWins ConflictStrategy = "local_wins"
	// StrategyRemoteWins always keeps the remote version.
	StrategyRemoteWins ConflictStrategy = "remote_wins"
)

// SyncConfig is the single persisted record describing this installation's
// sync state. DeviceID is generated once and never changes for the lifetime
// of the installation.
type SyncConfig struct {
	Enabled          bool             `json:"enabled"`
	UserID           string           `json:"user_id"`
	DeviceID         string           `json:"device_id"`
	Credential       string           `json:"credential"`
	CredentialExpiry *time.Time       `json:"credential_expiry,omitempty"`
	RemoteEndpoint   string           `json:"remote_endpoint"`
	ConflictStrategy ConflictStrategy `json:"conflict_strategy"`

	// LastSyncCursor is the server-side time marker (unix milliseconds) for
	// "everything changed since". LastSyncAt is the local wall-clock time the
	// last cycle completed, used to decide whether a record was edited since.
	LastSyncCursor int64       `json:"last_sync_cursor"`
	LastSyncAt     *time.Time  `json:"last_sync_at,omitempty"`
	Clock          VectorClock `json:"vector_clock"`

	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	LastFailureReason   string     `json:"last_failure_reason,omitempty"`
	NextRetryAt         *time.Time `json:"next_retry_at,omitempty"`
}

// SyncStatus is the outcome class of one sync cycle.
type SyncStatus string

const (
	SyncSuccess        SyncStatus = "success"
	SyncConflict       SyncStatus = "conflict"
	SyncError          SyncStatus = "error"
	SyncAlreadyRunning SyncStatus = "already_running"
)

// SyncResult describes one completed (or refused) cycle. Ephemeral: results
// are kept only in the coordinator's bounded history ring.
type SyncResult struct {
	Status            SyncStatus    `json:"status"`
	PushedCount       int           `json:"pushed_count"`
	PulledCount       int           `json:"pulled_count"`
	ConflictsResolved int           `json:"conflicts_resolved"`
	Error             string        `json:"error,omitempty"`
	Duration          time.Duration `json:"duration"`
	StartedAt         time.Time     `json:"started_at"`
}

// SyncTrigger says who asked for a cycle. A user trigger bypasses active
// backoff; an auto trigger is suppressed while a retry is scheduled.
type SyncTrigger string

const (
	TriggerUser SyncTrigger = "user"
	TriggerAuto SyncTrigger = "auto"
)
