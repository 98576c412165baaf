// Package repository implements security audit persistence for PostgreSQL and
// MySQL: the append-only log, the alert store, and the metrics aggregations.
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

// PostgreSQLLogRepository implements security log persistence for PostgreSQL.
type PostgreSQLLogRepository struct {
	db *sql.DB
}

// Create appends a new entry to the security log. Handles nil metadata as
// database NULL.
func (p *PostgreSQLLogRepository) Create(ctx context.Context, entry *auditDomain.SecurityLogEntry) error {
	querier := database.GetTx(ctx, p.db)

	var metadataJSON []byte
	var err error
	if entry.Metadata != nil {
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal security log metadata")
		}
	}

	query := `INSERT INTO security_log_entries
			  (id, event_type, severity, principal_id, ip_address, region, success, message, metadata, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID,
		string(entry.EventType),
		string(entry.Severity),
		entry.PrincipalID,
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
func (p *PostgreSQLLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.SecurityLogEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, event_type, severity, principal_id, ip_address, region, success, message, metadata, created_at
			  FROM security_log_entries
			  WHERE ($3::timestamptz IS NULL OR created_at >= $3)
				AND ($4::timestamptz IS NULL OR created_at <= $4)
			  ORDER BY id DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list security log entries")
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*auditDomain.SecurityLogEntry, 0)
	for rows.Next() {
		entry, err := scanLogEntry(rows)
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
func (p *PostgreSQLLogRepository) GetMetrics(
	ctx context.Context,
	since time.Time,
	topN int,
) (*auditDomain.SecurityMetrics, error) {
	querier := database.GetTx(ctx, p.db)

	metrics := &auditDomain.SecurityMetrics{
		BySeverity: make(map[auditDomain.Severity]int),
		ByType:     make(map[auditDomain.EventType]int),
	}

	severityQuery := `SELECT severity, COUNT(*)
					  FROM security_log_entries
					  WHERE created_at >= $1
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
				  WHERE created_at >= $1
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
				WHERE created_at >= $1 AND ip_address <> ''
				GROUP BY ip_address
				ORDER BY total DESC
				LIMIT $2`
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
					   WHERE created_at >= $1 AND principal_id IS NOT NULL
					   GROUP BY principal_id
					   ORDER BY total DESC
					   LIMIT $2`
	rows, err = querier.QueryContext(ctx, principalQuery, since, topN)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to aggregate top principals")
	}
	for rows.Next() {
		var row auditDomain.PrincipalCount
		if err := rows.Scan(&row.PrincipalID, &row.Count); err != nil {
			_ = rows.Close()
			return nil, apperrors.Wrap(err, "failed to scan top principal aggregate")
		}
		metrics.TopPrincipals = append(metrics.TopPrincipals, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate top principal aggregates")
	}
	_ = rows.Close()

	return metrics, nil
}

func scanLogEntry(rows *sql.Rows) (*auditDomain.SecurityLogEntry, error) {
	var entry auditDomain.SecurityLogEntry
	var eventType, severity string
	var principalID uuid.NullUUID
	var metadataJSON []byte

	err := rows.Scan(
		&entry.ID,
		&eventType,
		&severity,
		&principalID,
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

	entry.EventType = auditDomain.EventType(eventType)
	entry.Severity = auditDomain.Severity(severity)
	if principalID.Valid {
		id := principalID.UUID
		entry.PrincipalID = &id
	}
	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal security log metadata")
		}
	}
	return &entry, nil
}

// NewPostgreSQLLogRepository creates a new PostgreSQL security log repository.
func NewPostgreSQLLogRepository(db *sql.DB) *PostgreSQLLogRepository {
	return &PostgreSQLLogRepository{db: db}
}
