package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

// FakeLogRepository is an in-memory audit LogRepository.
type FakeLogRepository struct {
	mu      sync.Mutex
	entries []*auditDomain.SecurityLogEntry

	// FailCreate forces Create to return this error when set.
	FailCreate error
}

func NewFakeLogRepository() *FakeLogRepository {
	return &FakeLogRepository{}
}

func (f *FakeLogRepository) Create(_ context.Context, entry *auditDomain.SecurityLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCreate != nil {
		return f.FailCreate
	}
	copied := *entry
	f.entries = append(f.entries, &copied)
	return nil
}

func (f *FakeLogRepository) List(
	_ context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.SecurityLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	filtered := make([]*auditDomain.SecurityLogEntry, 0)
	for _, entry := range f.entries {
		if createdAtFrom != nil && entry.CreatedAt.Before(*createdAtFrom) {
			continue
		}
		if createdAtTo != nil && entry.CreatedAt.After(*createdAtTo) {
			continue
		}
		filtered = append(filtered, entry)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	if offset >= len(filtered) {
		return []*auditDomain.SecurityLogEntry{}, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], nil
}

func (f *FakeLogRepository) GetMetrics(
	_ context.Context,
	since time.Time,
	topN int,
) (*auditDomain.SecurityMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	metrics := &auditDomain.SecurityMetrics{
		BySeverity: make(map[auditDomain.Severity]int),
		ByType:     make(map[auditDomain.EventType]int),
	}
	ipCounts := make(map[string]int)
	principalCounts := make(map[uuid.UUID]int)

	for _, entry := range f.entries {
		if entry.CreatedAt.Before(since) {
			continue
		}
		metrics.TotalEntries++
		metrics.BySeverity[entry.Severity]++
		metrics.ByType[entry.EventType]++
		if entry.IPAddress != "" {
			ipCounts[entry.IPAddress]++
		}
		if entry.PrincipalID != nil {
			principalCounts[*entry.PrincipalID]++
		}
	}

	for ip, count := range ipCounts {
		metrics.TopIPs = append(metrics.TopIPs, auditDomain.IPCount{IPAddress: ip, Count: count})
	}
	sort.Slice(metrics.TopIPs, func(i, j int) bool {
		return metrics.TopIPs[i].Count > metrics.TopIPs[j].Count
	})
	if len(metrics.TopIPs) > topN {
		metrics.TopIPs = metrics.TopIPs[:topN]
	}

	for id, count := range principalCounts {
		metrics.TopPrincipals = append(metrics.TopPrincipals, auditDomain.PrincipalCount{PrincipalID: id, Count: count})
	}
	sort.Slice(metrics.TopPrincipals, func(i, j int) bool {
		return metrics.TopPrincipals[i].Count > metrics.TopPrincipals[j].Count
	})
	if len(metrics.TopPrincipals) > topN {
		metrics.TopPrincipals = metrics.TopPrincipals[:topN]
	}

	return metrics, nil
}

// Entries returns a snapshot of all stored log entries in insertion order.
func (f *FakeLogRepository) Entries() []*auditDomain.SecurityLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := make([]*auditDomain.SecurityLogEntry, len(f.entries))
	copy(snapshot, f.entries)
	return snapshot
}

// FakeAlertRepository is an in-memory audit AlertRepository.
type FakeAlertRepository struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]*auditDomain.SecurityAlert
	order  []uuid.UUID

	// FailCreate forces Create to return this error when set.
	FailCreate error
	// FailUpdateDispatchState forces UpdateDispatchState to return this error when set.
	FailUpdateDispatchState error
}

func NewFakeAlertRepository() *FakeAlertRepository {
	return &FakeAlertRepository{alerts: make(map[uuid.UUID]*auditDomain.SecurityAlert)}
}

func (f *FakeAlertRepository) Create(_ context.Context, alert *auditDomain.SecurityAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCreate != nil {
		return f.FailCreate
	}
	copied := *alert
	f.alerts[alert.ID] = &copied
	f.order = append(f.order, alert.ID)
	return nil
}

func (f *FakeAlertRepository) Get(_ context.Context, alertID uuid.UUID) (*auditDomain.SecurityAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	alert, ok := f.alerts[alertID]
	if !ok {
		return nil, auditDomain.ErrAlertNotFound
	}
	copied := *alert
	return &copied, nil
}

func (f *FakeAlertRepository) List(
	_ context.Context,
	offset, limit int,
	acknowledged *bool,
) ([]*auditDomain.SecurityAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	filtered := make([]*auditDomain.SecurityAlert, 0)
	for i := len(f.order) - 1; i >= 0; i-- {
		alert := f.alerts[f.order[i]]
		if acknowledged != nil && alert.Acknowledged != *acknowledged {
			continue
		}
		copied := *alert
		filtered = append(filtered, &copied)
	}

	if offset >= len(filtered) {
		return []*auditDomain.SecurityAlert{}, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], nil
}

func (f *FakeAlertRepository) Acknowledge(_ context.Context, alertID uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	alert, ok := f.alerts[alertID]
	if !ok || alert.Acknowledged {
		return false, nil
	}
	alert.Acknowledge(at)
	return true, nil
}

func (f *FakeAlertRepository) ListPending(
	_ context.Context,
	limit, maxAttempts int,
) ([]*auditDomain.SecurityAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pending := make([]*auditDomain.SecurityAlert, 0)
	for _, id := range f.order {
		alert := f.alerts[id]
		if alert.DispatchedAt != nil || alert.DispatchAttempts >= maxAttempts {
			continue
		}
		copied := *alert
		pending = append(pending, &copied)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (f *FakeAlertRepository) UpdateDispatchState(_ context.Context, alert *auditDomain.SecurityAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailUpdateDispatchState != nil {
		return f.FailUpdateDispatchState
	}
	stored, ok := f.alerts[alert.ID]
	if !ok {
		return auditDomain.ErrAlertNotFound
	}
	stored.DispatchAttempts = alert.DispatchAttempts
	stored.DispatchedAt = alert.DispatchedAt
	stored.LastDispatchError = alert.LastDispatchError
	return nil
}

// Alerts returns a snapshot of all stored alerts in insertion order.
func (f *FakeAlertRepository) Alerts() []*auditDomain.SecurityAlert {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := make([]*auditDomain.SecurityAlert, 0, len(f.order))
	for _, id := range f.order {
		copied := *f.alerts[id]
		snapshot = append(snapshot, &copied)
	}
	return snapshot
}
