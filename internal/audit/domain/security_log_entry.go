// Package domain defines the security audit entities: append-only log entries,
// alerts raised by detectors, and aggregated security metrics.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies a security log entry.
type EventType string

const (
	// EventAuthAttempt records an authentication attempt, successful or not.
	EventAuthAttempt EventType = "auth_attempt"

	// EventKeyRotation records a key rotation outcome.
	EventKeyRotation EventType = "key_rotation"

	// EventPasswordReset records a credential reset request.
	EventPasswordReset EventType = "password_reset"

	// EventDocumentAccess records a document read through the envelope gateway.
	EventDocumentAccess EventType = "document_access"

	// EventAdminAccessDenied records a rejected administrative operation.
	EventAdminAccessDenied EventType = "admin_access_denied"

	// EventRateLimit records a request denied by the rate limiter.
	EventRateLimit EventType = "rate_limit"
)

// Severity ranks how concerning an entry or alert is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SecurityLogEntry is one append-only record in the security audit log.
//
// PrincipalID is nil for events with no authenticated principal (a failed
// authentication from an unknown caller, a rate-limited anonymous request).
// Region is the coarse geographic region the request originated from, when the
// host application resolves one; detectors use it for anomalous-access checks.
type SecurityLogEntry struct {
	ID          uuid.UUID
	EventType   EventType
	Severity    Severity
	PrincipalID *uuid.UUID
	IPAddress   string
	Region      string
	Success     bool
	Message     string
	Metadata    map[string]any
	CreatedAt   time.Time
}
