// Package publisher delivers security alerts to external channels. The
// dispatcher fans out over every configured publisher; each one owns its
// transport (pubsub topic, webhook endpoint).
package publisher

import (
	"context"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

// Publisher delivers a security alert to one external channel.
type Publisher interface {
	// Name identifies the channel in logs and dispatch errors.
	Name() string

	// Publish delivers the alert. Implementations must respect ctx
	// cancellation and return an error for any non-delivery.
	Publish(ctx context.Context, alert *auditDomain.SecurityAlert) error
}

// alertPayload is the wire format shared by all publishers.
type alertPayload struct {
	ID             string   `json:"id"`
	AlertType      string   `json:"alert_type"`
	Severity       string   `json:"severity"`
	PrincipalID    *string  `json:"principal_id,omitempty"`
	IPAddress      string   `json:"ip_address,omitempty"`
	Message        string   `json:"message"`
	SourceEntryIDs []string `json:"source_entry_ids"`
	CreatedAt      string   `json:"created_at"`
}

func newAlertPayload(alert *auditDomain.SecurityAlert) alertPayload {
	payload := alertPayload{
		ID:        alert.ID.String(),
		AlertType: string(alert.AlertType),
		Severity:  string(alert.Severity),
		IPAddress: alert.IPAddress,
		Message:   alert.Message,
		CreatedAt: alert.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if alert.PrincipalID != nil {
		id := alert.PrincipalID.String()
		payload.PrincipalID = &id
	}
	payload.SourceEntryIDs = make([]string, 0, len(alert.SourceEntryIDs))
	for _, id := range alert.SourceEntryIDs {
		payload.SourceEntryIDs = append(payload.SourceEntryIDs, id.String())
	}
	return payload
}
