package models

import "time"

// HealthSeverity ranks how urgent a health issue is.
type HealthSeverity string

const (
	SeverityInfo    HealthSeverity = "info"
	SeverityWarning HealthSeverity = "warning"
	SeverityError   HealthSeverity = "error"
)

// Health issue types reported by the health monitor.
const (
	IssueSyncDisabled       = "sync_disabled"
	IssueCredentialExpiring = "credential_expiring"
	IssueCredentialExpired  = "credential_expired"
	IssueFailureStreak      = "failure_streak"
	IssueStaleSync          = "stale_sync"
	IssueTerminalEntries    = "terminal_entries"
)

// HealthIssue is one finding of a health check. Ephemeral, recomputed on
// every check.
type HealthIssue struct {
	Type            string         `json:"type"`
	Severity        HealthSeverity `json:"severity"`
	Message         string         `json:"message"`
	SuggestedAction string         `json:"suggested_action"`
}

// HealthReport aggregates the findings of one health check.
type HealthReport struct {
	Healthy   bool          `json:"healthy"`
	Issues    []HealthIssue `json:"issues"`
	CheckedAt time.Time     `json:"checked_at"`
}
