package domain

import "github.com/google/uuid"

// IPCount is one row of a top-N source IP aggregation.
type IPCount struct {
	IPAddress string
	Count     int
}

// PrincipalCount is one row of a top-N principal aggregation.
type PrincipalCount struct {
	PrincipalID uuid.UUID
	Count       int
}

// SecurityMetrics aggregates the security log over a time window.
type SecurityMetrics struct {
	TotalEntries  int
	BySeverity    map[Severity]int
	ByType        map[EventType]int
	TopIPs        []IPCount
	TopPrincipals []PrincipalCount
}
