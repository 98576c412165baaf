// Package usecase implements business logic orchestration for the security
// audit log: append-only event recording, synchronous detector evaluation,
// alert management and metrics aggregation.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

// LogRepository defines the interface for security log entry persistence.
type LogRepository interface {
	// Create stores a new security log entry.
	Create(ctx context.Context, entry *auditDomain.SecurityLogEntry) error

	// List retrieves entries newest first with pagination and optional
	// time-based filtering; nil boundaries mean no filter.
	List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*auditDomain.SecurityLogEntry, error)

	// GetMetrics aggregates the log since the given cutoff.
	GetMetrics(ctx context.Context, since time.Time, topN int) (*auditDomain.SecurityMetrics, error)
}

// AlertRepository defines the interface for security alert persistence.
type AlertRepository interface {
	// Create stores a new security alert.
	Create(ctx context.Context, alert *auditDomain.SecurityAlert) error

	// Get retrieves a security alert by id.
	Get(ctx context.Context, alertID uuid.UUID) (*auditDomain.SecurityAlert, error)

	// List retrieves alerts newest first with pagination; acknowledged
	// filters by acknowledgement state when non-nil.
	List(ctx context.Context, offset, limit int, acknowledged *bool) ([]*auditDomain.SecurityAlert, error)

	// Acknowledge marks an alert as handled; false means no row changed.
	Acknowledge(ctx context.Context, alertID uuid.UUID, at time.Time) (bool, error)

	// ListPending returns undelivered alerts below the attempt limit.
	ListPending(ctx context.Context, limit, maxAttempts int) ([]*auditDomain.SecurityAlert, error)

	// UpdateDispatchState persists the outcome of a dispatch attempt.
	UpdateDispatchState(ctx context.Context, alert *auditDomain.SecurityAlert) error
}

// AuditUseCase defines the security audit log operations.
type AuditUseCase interface {
	// Log appends a security log entry and runs the detectors against it.
	// Never fails the caller: persistence and detector errors are captured
	// internally and logged to the fallback sink.
	Log(ctx context.Context, entry *auditDomain.SecurityLogEntry)

	// ListEntries retrieves log entries newest first with pagination and
	// optional time-based filtering.
	ListEntries(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*auditDomain.SecurityLogEntry, error)

	// ListAlerts retrieves alerts newest first with pagination; acknowledged
	// filters by acknowledgement state when non-nil.
	ListAlerts(ctx context.Context, offset, limit int, acknowledged *bool) ([]*auditDomain.SecurityAlert, error)

	// AcknowledgeAlert marks an alert as handled. Acknowledging an already
	// acknowledged alert is a no-op success; unknown alerts return
	// ErrAlertNotFound.
	AcknowledgeAlert(ctx context.Context, alertID uuid.UUID) error

	// GetMetrics aggregates the security log over the trailing window.
	GetMetrics(ctx context.Context, window time.Duration, topN int) (*auditDomain.SecurityMetrics, error)

	// LogMasterKeyRotation records one key_rotation entry for a completed
	// master key rotation.
	LogMasterKeyRotation(ctx context.Context, principalID uuid.UUID, oldMasterKeyID, newMasterKeyID string, rewrapped, failed int)

	// LogDataKeyRotation records one key_rotation entry for a completed
	// document data key rotation.
	LogDataKeyRotation(ctx context.Context, principalID, documentID uuid.UUID)

	// LogRewrapFailure records a medium-severity key_rotation entry for a
	// document whose rewrap failed and is left for the next pass.
	LogRewrapFailure(ctx context.Context, principalID, documentID uuid.UUID, reason string)
}
