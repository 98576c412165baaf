// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

// SecurityLogEntryResponse represents a security log entry in API responses.
type SecurityLogEntryResponse struct {
	ID          uuid.UUID      `json:"id"`
	EventType   string         `json:"event_type"`
	Severity    string         `json:"severity"`
	PrincipalID *uuid.UUID     `json:"principal_id,omitempty"`
	IPAddress   string         `json:"ip_address"`
	Region      string         `json:"region,omitempty"`
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// MapSecurityLogEntryToResponse converts a domain log entry to the API response format.
func MapSecurityLogEntryToResponse(entry *auditDomain.SecurityLogEntry) SecurityLogEntryResponse {
	return SecurityLogEntryResponse{
		ID:          entry.ID,
		EventType:   string(entry.EventType),
		Severity:    string(entry.Severity),
		PrincipalID: entry.PrincipalID,
		IPAddress:   entry.IPAddress,
		Region:      entry.Region,
		Success:     entry.Success,
		Message:     entry.Message,
		Metadata:    entry.Metadata,
		CreatedAt:   entry.CreatedAt,
	}
}

// ListSecurityLogEntriesResponse represents a paginated list of log entries.
type ListSecurityLogEntriesResponse struct {
	Data []SecurityLogEntryResponse `json:"data"`
}

// MapSecurityLogEntriesToListResponse converts domain log entries to a list response.
func MapSecurityLogEntriesToListResponse(entries []*auditDomain.SecurityLogEntry) ListSecurityLogEntriesResponse {
	data := make([]SecurityLogEntryResponse, 0, len(entries))
	for _, entry := range entries {
		data = append(data, MapSecurityLogEntryToResponse(entry))
	}

	return ListSecurityLogEntriesResponse{
		Data: data,
	}
}

// SecurityAlertResponse represents a security alert in API responses.
// Dispatch bookkeeping stays internal and is not exposed.
type SecurityAlertResponse struct {
	ID             uuid.UUID   `json:"id"`
	AlertType      string      `json:"alert_type"`
	Severity       string      `json:"severity"`
	PrincipalID    *uuid.UUID  `json:"principal_id,omitempty"`
	IPAddress      string      `json:"ip_address,omitempty"`
	Message        string      `json:"message"`
	SourceEntryIDs []uuid.UUID `json:"source_entry_ids"`
	Acknowledged   bool        `json:"acknowledged"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// MapSecurityAlertToResponse converts a domain alert to the API response format.
func MapSecurityAlertToResponse(alert *auditDomain.SecurityAlert) SecurityAlertResponse {
	return SecurityAlertResponse{
		ID:             alert.ID,
		AlertType:      string(alert.AlertType),
		Severity:       string(alert.Severity),
		PrincipalID:    alert.PrincipalID,
		IPAddress:      alert.IPAddress,
		Message:        alert.Message,
		SourceEntryIDs: alert.SourceEntryIDs,
		Acknowledged:   alert.Acknowledged,
		AcknowledgedAt: alert.AcknowledgedAt,
		CreatedAt:      alert.CreatedAt,
	}
}

// ListSecurityAlertsResponse represents a paginated list of alerts.
type ListSecurityAlertsResponse struct {
	Data []SecurityAlertResponse `json:"data"`
}

// MapSecurityAlertsToListResponse converts domain alerts to a list response.
func MapSecurityAlertsToListResponse(alerts []*auditDomain.SecurityAlert) ListSecurityAlertsResponse {
	data := make([]SecurityAlertResponse, 0, len(alerts))
	for _, alert := range alerts {
		data = append(data, MapSecurityAlertToResponse(alert))
	}

	return ListSecurityAlertsResponse{
		Data: data,
	}
}

// IPCountResponse is one row of the top-IP ranking.
type IPCountResponse struct {
	IPAddress string `json:"ip_address"`
	Count     int    `json:"count"`
}

// PrincipalCountResponse is one row of the top-principal ranking.
type PrincipalCountResponse struct {
	PrincipalID uuid.UUID `json:"principal_id"`
	Count       int       `json:"count"`
}

// SecurityMetricsResponse represents aggregated security log metrics in API responses.
type SecurityMetricsResponse struct {
	TotalEntries  int                      `json:"total_entries"`
	BySeverity    map[string]int           `json:"by_severity"`
	ByType        map[string]int           `json:"by_type"`
	TopIPs        []IPCountResponse        `json:"top_ips"`
	TopPrincipals []PrincipalCountResponse `json:"top_principals"`
}

// MapSecurityMetricsToResponse converts domain metrics to the API response format.
func MapSecurityMetricsToResponse(metrics *auditDomain.SecurityMetrics) SecurityMetricsResponse {
	bySeverity := make(map[string]int, len(metrics.BySeverity))
	for severity, count := range metrics.BySeverity {
		bySeverity[string(severity)] = count
	}

	byType := make(map[string]int, len(metrics.ByType))
	for eventType, count := range metrics.ByType {
		byType[string(eventType)] = count
	}

	topIPs := make([]IPCountResponse, 0, len(metrics.TopIPs))
	for _, row := range metrics.TopIPs {
		topIPs = append(topIPs, IPCountResponse{IPAddress: row.IPAddress, Count: row.Count})
	}

	topPrincipals := make([]PrincipalCountResponse, 0, len(metrics.TopPrincipals))
	for _, row := range metrics.TopPrincipals {
		topPrincipals = append(topPrincipals, PrincipalCountResponse{
			PrincipalID: row.PrincipalID,
			Count:       row.Count,
		})
	}

	return SecurityMetricsResponse{
		TotalEntries:  metrics.TotalEntries,
		BySeverity:    bySeverity,
		ByType:        byType,
		TopIPs:        topIPs,
		TopPrincipals: topPrincipals,
	}
}
