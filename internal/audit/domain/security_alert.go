package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertType names the detector that raised an alert.
type AlertType string

const (
	AlertBruteForce        AlertType = "brute_force"
	AlertExcessiveReset    AlertType = "excessive_reset"
	AlertAnomalousAccess   AlertType = "anomalous_access"
	AlertAdminAccessDenied AlertType = "admin_access_denied"
)

// SecurityAlert is raised by a detector when a pattern in the log crosses a
// threshold. Alerts are never deleted: acknowledging marks them handled but
// keeps the record.
//
// Dispatch state follows the outbox pattern: the dispatcher picks up alerts
// with DispatchedAt unset, publishes them, and records the outcome. An alert
// whose attempts reach the configured maximum is left undelivered but intact.
type SecurityAlert struct {
	ID             uuid.UUID
	AlertType      AlertType
	Severity       Severity
	PrincipalID    *uuid.UUID
	IPAddress      string
	Message        string
	SourceEntryIDs []uuid.UUID

	Acknowledged   bool
	AcknowledgedAt *time.Time

	DispatchAttempts int
	DispatchedAt     *time.Time
	LastDispatchError *string

	CreatedAt time.Time
}

// Acknowledge marks the alert as handled. Idempotent.
func (a *SecurityAlert) Acknowledge(now time.Time) {
	if a.Acknowledged {
		return
	}
	a.Acknowledged = true
	a.AcknowledgedAt = &now
}
