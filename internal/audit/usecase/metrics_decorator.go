package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
	"github.com/allisson/keycore/internal/metrics"
)

// auditUseCaseWithMetrics decorates AuditUseCase with metrics instrumentation.
type auditUseCaseWithMetrics struct {
	next    AuditUseCase
	metrics metrics.BusinessMetrics
}

// NewAuditUseCaseWithMetrics wraps an AuditUseCase with metrics recording.
func NewAuditUseCaseWithMetrics(useCase AuditUseCase, m metrics.BusinessMetrics) AuditUseCase {
	return &auditUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *auditUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordOperation(ctx, "audit", operation, status)
	a.metrics.RecordDuration(ctx, "audit", operation, time.Since(start), status)
}

// Log records metrics for log appends. Log itself never fails.
func (a *auditUseCaseWithMetrics) Log(ctx context.Context, entry *auditDomain.SecurityLogEntry) {
	start := time.Now()
	a.next.Log(ctx, entry)
	a.record(ctx, "log", start, nil)
}

// ListEntries records metrics for log entry listings.
func (a *auditUseCaseWithMetrics) ListEntries(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.SecurityLogEntry, error) {
	start := time.Now()
	entries, err := a.next.ListEntries(ctx, offset, limit, createdAtFrom, createdAtTo)
	a.record(ctx, "list_entries", start, err)
	return entries, err
}

// ListAlerts records metrics for alert listings.
func (a *auditUseCaseWithMetrics) ListAlerts(
	ctx context.Context,
	offset, limit int,
	acknowledged *bool,
) ([]*auditDomain.SecurityAlert, error) {
	start := time.Now()
	alerts, err := a.next.ListAlerts(ctx, offset, limit, acknowledged)
	a.record(ctx, "list_alerts", start, err)
	return alerts, err
}

// AcknowledgeAlert records metrics for alert acknowledgements.
func (a *auditUseCaseWithMetrics) AcknowledgeAlert(ctx context.Context, alertID uuid.UUID) error {
	start := time.Now()
	err := a.next.AcknowledgeAlert(ctx, alertID)
	a.record(ctx, "acknowledge_alert", start, err)
	return err
}

// GetMetrics records metrics for security metric aggregations.
func (a *auditUseCaseWithMetrics) GetMetrics(
	ctx context.Context,
	window time.Duration,
	topN int,
) (*auditDomain.SecurityMetrics, error) {
	start := time.Now()
	securityMetrics, err := a.next.GetMetrics(ctx, window, topN)
	a.record(ctx, "get_metrics", start, err)
	return securityMetrics, err
}

func (a *auditUseCaseWithMetrics) LogMasterKeyRotation(
	ctx context.Context,
	principalID uuid.UUID,
	oldMasterKeyID, newMasterKeyID string,
	rewrapped, failed int,
) {
	a.next.LogMasterKeyRotation(ctx, principalID, oldMasterKeyID, newMasterKeyID, rewrapped, failed)
}

func (a *auditUseCaseWithMetrics) LogDataKeyRotation(ctx context.Context, principalID, documentID uuid.UUID) {
	a.next.LogDataKeyRotation(ctx, principalID, documentID)
}

func (a *auditUseCaseWithMetrics) LogRewrapFailure(ctx context.Context, principalID, documentID uuid.UUID, reason string) {
	a.next.LogRewrapFailure(ctx, principalID, documentID, reason)
}
