package detector

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

// Detector inspects a single security log entry and decides whether it
// completes an abuse pattern. A nil alert means no pattern fired.
type Detector interface {
	OnEvent(ctx context.Context, entry *auditDomain.SecurityLogEntry) (*auditDomain.SecurityAlert, error)
}

func newAlert(
	alertType auditDomain.AlertType,
	severity auditDomain.Severity,
	entry *auditDomain.SecurityLogEntry,
	message string,
) *auditDomain.SecurityAlert {
	return &auditDomain.SecurityAlert{
		ID:             uuid.Must(uuid.NewV7()),
		AlertType:      alertType,
		Severity:       severity,
		PrincipalID:    entry.PrincipalID,
		IPAddress:      entry.IPAddress,
		Message:        message,
		SourceEntryIDs: []uuid.UUID{entry.ID},
		CreatedAt:      time.Now().UTC(),
	}
}
