package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
	"github.com/allisson/keycore/internal/database"
	apperrors "github.com/allisson/keycore/internal/errors"
)

// MySQLLogRepository implements security log persistence for MySQL.
// Uses BINARY(16) for UUIDs with transaction support via database.GetTx().
type MySQLLogRepository struct {
	db *sql.DB
}

// Create stores a new security log entry.
func (m *MySQLLogRepository) Create(ctx context.Context, entry *auditDomain.SecurityLogEntry) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO security_log_entries (id, event_type, severity, principal_id, ip_address, region, success, message, metadata, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal entry id")
	}

	var principalID []byte
	if entry.PrincipalID != nil {
		principalID, err = entry.PrincipalID.MarshalBinary()
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal principal id")
		}
	}

	var metadataJSON []byte
	if entry.Metadata != nil {
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal security log metadata")
		}
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		string(entry.EventType),
		string(entry.Severity),
		principalID,
		entry.IPAddress,
		entry.Region,
		entry.Success,
		entry.Message,
		metadataJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create security log entry")
	}
	return nil
}

// List retrieves entries newest first with pagination and optional time-based
// filtering; nil boundaries mean no filter and both boundaries are inclusive.
func (m *MySQLLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.SecurityLogEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, event_type, severity, principal_id, ip_address, region, success, message, metadata, created_at
			  FROM security_log_entries
			  WHERE (? IS NULL OR created_at >= ?)
				AND (? IS NULL OR created_at <= ?)
			  ORDER BY id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, createdAtFrom, createdAtFrom, createdAtTo, createdAtTo, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list security log entries")
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*auditDomain.SecurityLogEntry, 0)
	for rows.Next() {
		entry, err := scanMySQLLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate security log entries")
	}
	return entries, nil
}

// GetMetrics aggregates the security log since the given cutoff: entry counts
// by severity and event type plus the top-N source IPs and principals.
func (m *MySQLLogRepository) GetMetrics(
	ctx context.Context,
	since time.Time,
	topN int,
) (*auditDomain.SecurityMetrics, error) {
	querier := database.GetTx(ctx, m.db)

	metrics := &auditDomain.SecurityMetrics{
		BySeverity: make(map[auditDomain.Severity]int),
		ByType:     make(map[auditDomain.EventType]int),
	}

	severityQuery := `SELECT severity, COUNT(*)
					  FROM security_log_entries
					  WHERE created_at >= ?
					  GROUP BY severity`
	rows, err := querier.QueryContext(ctx, severityQuery, since)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to aggregate by severity")
	}
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			_ = rows.Close()
			return nil, apperrors.Wrap(err, "failed to scan severity aggregate")
		}
		metrics.BySeverity[auditDomain.Severity(severity)] = count
		metrics.TotalEntries += count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate severity aggregates")
	}
	_ = rows.Close()

	typeQuery := `SELECT event_type, COUNT(*)
				  FROM security_log_entries
				  WHERE created_at >= ?
				  GROUP BY event_type`
	rows, err = querier.QueryContext(ctx, typeQuery, since)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to aggregate by event type")
	}
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			_ = rows.Close()
			return nil, apperrors.Wrap(err, "failed to scan event type aggregate")
		}
		metrics.ByType[auditDomain.EventType(eventType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate event type aggregates")
	}
	_ = rows.Close()

	ipQuery := `SELECT ip_address, COUNT(*) AS total
				FROM security_log_entries
				WHERE created_at >= ? AND ip_address <> ''
				GROUP BY ip_address
				ORDER BY total DESC
				LIMIT ?`
	rows, err = querier.QueryContext(ctx, ipQuery, since, topN)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to aggregate top ips")
	}
	for rows.Next() {
		var row auditDomain.IPCount
		if err := rows.Scan(&row.IPAddress, &row.Count); err != nil {
			_ = rows.Close()
			return nil, apperrors.Wrap(err, "failed to scan top ip aggregate")
		}
		metrics.TopIPs = append(metrics.TopIPs, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate top ip aggregates")
	}
	_ = rows.Close()

	principalQuery := `SELECT principal_id, COUNT(*) AS total
					   FROM security_log_entries
					   WHERE created_at >= ? AND principal_id IS NOT NULL
					   GROUP BY principal_id
					   ORDER BY total DESC
					   LIMIT ?`
	rows, err = querier.QueryContext(ctx, principalQuery, since, topN)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to aggregate top principals")
	}
	for rows.Next() {
		var row auditDomain.PrincipalCount
		var idBytes []byte
		if err := rows.Scan(&idBytes, &row.Count); err != nil {
			_ = rows.Close()
			return nil, apperrors.Wrap(err, "failed to scan top principal aggregate")
		}
		if err := row.PrincipalID.UnmarshalBinary(idBytes); err != nil {
			_ = rows.Close()
			return nil, apperrors.Wrap(err, "failed to unmarshal principal id")
		}
		metrics.TopPrincipals = append(metrics.TopPrincipals, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate top principal aggregates")
	}
	_ = rows.Close()

	return metrics, nil
}

func scanMySQLLogEntry(rows *sql.Rows) (*auditDomain.SecurityLogEntry, error) {
	var entry auditDomain.SecurityLogEntry
	var eventType, severity string
	var idBytes, principalBytes, metadataJSON []byte

	err := rows.Scan(
		&idBytes,
		&eventType,
		&severity,
		&principalBytes,
		&entry.IPAddress,
		&entry.Region,
		&entry.Success,
		&entry.Message,
		&metadataJSON,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan security log entry")
	}

	if err := entry.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal entry id")
	}
	entry.EventType = auditDomain.EventType(eventType)
	entry.Severity = auditDomain.Severity(severity)
	if principalBytes != nil {
		var id uuid.UUID
		if err := id.UnmarshalBinary(principalBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal principal id")
		}
		entry.PrincipalID = &id
	}
	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal security log metadata")
		}
	}
	return &entry, nil
}

// NewMySQLLogRepository creates a new MySQL security log repository.
func NewMySQLLogRepository(db *sql.DB) *MySQLLogRepository {
	return &MySQLLogRepository{db: db}
}
