package detector

import (
	"context"
	"fmt"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

// AdminDeniedDetector raises a high-severity alert for every denied admin
// access attempt. A single occurrence is notable, so there is no threshold
// and no counter state.
type AdminDeniedDetector struct{}

// NewAdminDeniedDetector creates a new admin access denied detector.
func NewAdminDeniedDetector() *AdminDeniedDetector {
	return &AdminDeniedDetector{}
}

func (d *AdminDeniedDetector) OnEvent(
	_ context.Context,
	entry *auditDomain.SecurityLogEntry,
) (*auditDomain.SecurityAlert, error) {
	if entry.EventType != auditDomain.EventAdminAccessDenied {
		return nil, nil
	}

	message := fmt.Sprintf("admin access denied from %s", entry.IPAddress)
	if entry.PrincipalID != nil {
		message = fmt.Sprintf("admin access denied for principal %s from %s", entry.PrincipalID, entry.IPAddress)
	}
	return newAlert(auditDomain.AlertAdminAccessDenied, auditDomain.SeverityHigh, entry, message), nil
}
