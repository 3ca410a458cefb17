package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck-sync/internal/config"
	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/internal/store"
	"github.com/taskdeck/taskdeck-sync/models"
)

type healthMonitor struct {
	cfgRepo   store.ConfigRepository
	queue     SyncQueue
	healthCfg config.Health

	now func() time.Time

	logger *logger.Logger
}

// NewHealthMonitor builds the read-only sync health auditor.
func NewHealthMonitor(cfgRepo store.ConfigRepository, queue SyncQueue, healthCfg config.Health, log *logger.Logger) HealthMonitor {
	return &healthMonitor{
		cfgRepo:   cfgRepo,
		queue:     queue,
		healthCfg: healthCfg,
		now:       time.Now,
		logger:    log,
	}
}

// Report implements [HealthMonitor]. The check reads the persisted config
// and the outbox and mutates neither; a healthy report is one with no
// warning or error findings.
func (h *healthMonitor) Report(ctx context.Context) (models.HealthReport, error) {
	now := h.now()
	report := models.HealthReport{Healthy: true, CheckedAt: now}

	cfg, err := h.cfgRepo.GetConfig(ctx)
	if errors.Is(err, store.ErrSyncConfigNotFound) {
		report.Issues = append(report.Issues, models.HealthIssue{
			Type:            models.IssueSyncDisabled,
			Severity:        models.SeverityInfo,
			Message:         "sync has not been configured on this device",
			SuggestedAction: "enable sync and sign in to start syncing",
		})
		return report, nil
	}
	if err != nil {
		return models.HealthReport{}, fmt.Errorf("load sync config: %w", err)
	}

	if !cfg.Enabled {
		// Disabled on purpose is informational, not unhealthy.
		report.Issues = append(report.Issues, models.HealthIssue{
			Type:            models.IssueSyncDisabled,
			Severity:        models.SeverityInfo,
			Message:         "sync is disabled",
			SuggestedAction: "enable sync to resume syncing with other devices",
		})
		return report, nil
	}

	h.checkCredential(cfg, now, &report)
	h.checkFailureStreak(cfg, &report)
	h.checkStaleness(cfg, now, &report)

	if err := h.checkOutbox(ctx, &report); err != nil {
		return models.HealthReport{}, err
	}

	for _, issue := range report.Issues {
		if issue.Severity != models.SeverityInfo {
			report.Healthy = false
			break
		}
	}

	return report, nil
}

func (h *healthMonitor) checkCredential(cfg models.SyncConfig, now time.Time, report *models.HealthReport) {
	if cfg.CredentialExpiry == nil {
		return
	}

	expiry := *cfg.CredentialExpiry
	switch {
	case !expiry.After(now):
		report.Issues = append(report.Issues, models.HealthIssue{
			Type:            models.IssueCredentialExpired,
			Severity:        models.SeverityError,
			Message:         "the sync credential has expired",
			SuggestedAction: "sign in again to obtain a fresh credential",
		})
	case expiry.Sub(now) <= h.healthCfg.CredentialExpiryWarn:
		report.Issues = append(report.Issues, models.HealthIssue{
			Type:            models.IssueCredentialExpiring,
			Severity:        models.SeverityWarning,
			Message:         fmt.Sprintf("the sync credential expires at %s", expiry.Format(time.RFC3339)),
			SuggestedAction: "sign in again before the credential expires",
		})
	}
}

func (h *healthMonitor) checkFailureStreak(cfg models.SyncConfig, report *models.HealthReport) {
	if cfg.ConsecutiveFailures == 0 {
		return
	}

	severity := models.SeverityWarning
	if cfg.ConsecutiveFailures >= h.healthCfg.FailureStreak {
		severity = models.SeverityError
	}
	msg := fmt.Sprintf("the last %d sync cycles failed", cfg.ConsecutiveFailures)
	if cfg.ConsecutiveFailures == 1 {
		msg = "the last sync cycle failed"
	}
	if cfg.LastFailureReason != "" {
		msg += ": " + cfg.LastFailureReason
	}

	report.Issues = append(report.Issues, models.HealthIssue{
		Type:            models.IssueFailureStreak,
		Severity:        severity,
		Message:         msg,
		SuggestedAction: "check network connectivity and trigger a manual sync",
	})
}

func (h *healthMonitor) checkStaleness(cfg models.SyncConfig, now time.Time, report *models.HealthReport) {
	if cfg.LastSyncAt == nil {
		// Never synced yet: first-run state, not staleness.
		return
	}

	if age := now.Sub(*cfg.LastSyncAt); age > h.healthCfg.StaleAfter {
		report.Issues = append(report.Issues, models.HealthIssue{
			Type:            models.IssueStaleSync,
			Severity:        models.SeverityWarning,
			Message:         fmt.Sprintf("no sync cycle has completed for %s", age.Round(time.Second)),
			SuggestedAction: "trigger a manual sync",
		})
	}
}

func (h *healthMonitor) checkOutbox(ctx context.Context, report *models.HealthReport) error {
	terminal, err := h.queue.TerminalFailures(ctx)
	if err != nil {
		return fmt.Errorf("inspect outbox: %w", err)
	}
	if len(terminal) == 0 {
		return nil
	}

	report.Issues = append(report.Issues, models.HealthIssue{
		Type:            models.IssueTerminalEntries,
		Severity:        models.SeverityWarning,
		Message:         fmt.Sprintf("%d queued changes exhausted their retries and need attention", len(terminal)),
		SuggestedAction: "review the stuck changes and retry or discard them",
	})

	return nil
}
