package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
	"github.com/allisson/keycore/internal/audit/detector"
	apperrors "github.com/allisson/keycore/internal/errors"
)

// auditUseCase implements AuditUseCase.
type auditUseCase struct {
	logRepo   LogRepository
	alertRepo AlertRepository
	detectors []detector.Detector
	logger    *slog.Logger
}

// Log appends the entry and evaluates it against every detector. Errors never
// reach the caller: the primary operation must not fail because logging or
// detection did. Failures go to the fallback slog sink instead.
func (a *auditUseCase) Log(ctx context.Context, entry *auditDomain.SecurityLogEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.Must(uuid.NewV7())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := a.logRepo.Create(ctx, entry); err != nil {
		a.logger.Error("failed to persist security log entry",
			"entry_id", entry.ID,
			"event_type", entry.EventType,
			"error", err,
		)
	}

	for _, d := range a.detectors {
		alert, err := d.OnEvent(ctx, entry)
		if err != nil {
			a.logger.Error("security detector failed",
				"entry_id", entry.ID,
				"event_type", entry.EventType,
				"error", err,
			)
			continue
		}
		if alert == nil {
			continue
		}
		if err := a.alertRepo.Create(ctx, alert); err != nil {
			a.logger.Error("failed to persist security alert",
				"alert_id", alert.ID,
				"alert_type", alert.AlertType,
				"error", err,
			)
			continue
		}
		a.logger.Warn("security alert raised",
			"alert_id", alert.ID,
			"alert_type", alert.AlertType,
			"severity", alert.Severity,
			"ip_address", alert.IPAddress,
		)
	}
}

// ListEntries retrieves log entries newest first with pagination and optional
// time-based filtering. Both boundaries are inclusive.
func (a *auditUseCase) ListEntries(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.SecurityLogEntry, error) {
	entries, err := a.logRepo.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list security log entries")
	}
	return entries, nil
}

// ListAlerts retrieves alerts newest first with pagination.
func (a *auditUseCase) ListAlerts(
	ctx context.Context,
	offset, limit int,
	acknowledged *bool,
) ([]*auditDomain.SecurityAlert, error) {
	alerts, err := a.alertRepo.List(ctx, offset, limit, acknowledged)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list security alerts")
	}
	return alerts, nil
}

// AcknowledgeAlert marks an alert as handled. The conditional update touches
// nothing when the alert is already acknowledged; a follow-up Get separates
// that no-op from a missing alert.
func (a *auditUseCase) AcknowledgeAlert(ctx context.Context, alertID uuid.UUID) error {
	acked, err := a.alertRepo.Acknowledge(ctx, alertID, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, "failed to acknowledge security alert")
	}
	if acked {
		return nil
	}

	if _, err := a.alertRepo.Get(ctx, alertID); err != nil {
		return err
	}
	return nil
}

// GetMetrics aggregates the security log over the trailing window.
func (a *auditUseCase) GetMetrics(
	ctx context.Context,
	window time.Duration,
	topN int,
) (*auditDomain.SecurityMetrics, error) {
	since := time.Now().UTC().Add(-window)
	metrics, err := a.logRepo.GetMetrics(ctx, since, topN)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to aggregate security metrics")
	}
	return metrics, nil
}

// LogMasterKeyRotation records a completed master key rotation.
func (a *auditUseCase) LogMasterKeyRotation(
	ctx context.Context,
	principalID uuid.UUID,
	oldMasterKeyID, newMasterKeyID string,
	rewrapped, failed int,
) {
	a.Log(ctx, &auditDomain.SecurityLogEntry{
		EventType:   auditDomain.EventKeyRotation,
		Severity:    auditDomain.SeverityLow,
		PrincipalID: &principalID,
		Success:     true,
		Message:     "master key rotated",
		Metadata: map[string]any{
			"old_master_key_id": oldMasterKeyID,
			"new_master_key_id": newMasterKeyID,
			"rewrapped":         rewrapped,
			"failed":            failed,
		},
	})
}

// LogDataKeyRotation records a completed document data key rotation.
func (a *auditUseCase) LogDataKeyRotation(ctx context.Context, principalID, documentID uuid.UUID) {
	a.Log(ctx, &auditDomain.SecurityLogEntry{
		EventType:   auditDomain.EventKeyRotation,
		Severity:    auditDomain.SeverityLow,
		PrincipalID: &principalID,
		Success:     true,
		Message:     "document data key rotated",
		Metadata: map[string]any{
			"document_id": documentID.String(),
		},
	})
}

// LogRewrapFailure records a document left behind by a master key rotation.
// The next rotation-needs scan picks it up.
func (a *auditUseCase) LogRewrapFailure(ctx context.Context, principalID, documentID uuid.UUID, reason string) {
	a.Log(ctx, &auditDomain.SecurityLogEntry{
		EventType:   auditDomain.EventKeyRotation,
		Severity:    auditDomain.SeverityMedium,
		PrincipalID: &principalID,
		Success:     false,
		Message:     "document rewrap failed",
		Metadata: map[string]any{
			"document_id": documentID.String(),
			"reason":      reason,
		},
	})
}

// NewAuditUseCase creates a new security audit use case. Detectors run
// synchronously after each append, in order.
func NewAuditUseCase(
	logRepo LogRepository,
	alertRepo AlertRepository,
	detectors []detector.Detector,
	logger *slog.Logger,
) AuditUseCase {
	return &auditUseCase{
		logRepo:   logRepo,
		alertRepo: alertRepo,
		detectors: detectors,
		logger:    logger,
	}
}
