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

const alertColumns = `id, alert_type, severity, principal_id, ip_address, message, source_entry_ids,
					  acknowledged, acknowledged_at, dispatch_attempts, dispatched_at, last_dispatch_error, created_at`

// PostgreSQLAlertRepository implements security alert persistence for PostgreSQL.
type PostgreSQLAlertRepository struct {
	db *sql.DB
}

// Create stores a new security alert.
func (p *PostgreSQLAlertRepository) Create(ctx context.Context, alert *auditDomain.SecurityAlert) error {
	querier := database.GetTx(ctx, p.db)

	sourceIDs, err := json.Marshal(alert.SourceEntryIDs)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal source entry ids")
	}

	query := `INSERT INTO security_alerts (` + alertColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = querier.ExecContext(
		ctx,
		query,
		alert.ID,
		string(alert.AlertType),
		string(alert.Severity),
		alert.PrincipalID,
		alert.IPAddress,
		alert.Message,
		sourceIDs,
		alert.Acknowledged,
		alert.AcknowledgedAt,
		alert.DispatchAttempts,
		alert.DispatchedAt,
		alert.LastDispatchError,
		alert.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create security alert")
	}
	return nil
}

// Get retrieves a security alert by id.
func (p *PostgreSQLAlertRepository) Get(ctx context.Context, alertID uuid.UUID) (*auditDomain.SecurityAlert, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + alertColumns + ` FROM security_alerts WHERE id = $1`

	alert, err := scanAlert(querier.QueryRowContext(ctx, query, alertID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, auditDomain.ErrAlertNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get security alert")
	}
	return alert, nil
}

// List retrieves alerts newest first with pagination; acknowledged filters by
// acknowledgement state when non-nil.
func (p *PostgreSQLAlertRepository) List(
	ctx context.Context,
	offset, limit int,
	acknowledged *bool,
) ([]*auditDomain.SecurityAlert, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + alertColumns + `
			  FROM security_alerts
			  WHERE ($3::boolean IS NULL OR acknowledged = $3)
			  ORDER BY id DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset, acknowledged)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list security alerts")
	}
	defer func() { _ = rows.Close() }()

	return collectAlerts(rows)
}

// Acknowledge marks an alert as handled. Returns false without error when the
// alert was already acknowledged (or does not exist); callers distinguish the
// two with Get.
func (p *PostgreSQLAlertRepository) Acknowledge(
	ctx context.Context,
	alertID uuid.UUID,
	at time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE security_alerts
			  SET acknowledged = TRUE, acknowledged_at = $1
			  WHERE id = $2 AND acknowledged = FALSE`

	result, err := querier.ExecContext(ctx, query, at, alertID)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to acknowledge security alert")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected == 1, nil
}

// ListPending returns undelivered alerts that have not exhausted their dispatch
// attempts, oldest first.
func (p *PostgreSQLAlertRepository) ListPending(
	ctx context.Context,
	limit, maxAttempts int,
) ([]*auditDomain.SecurityAlert, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + alertColumns + `
			  FROM security_alerts
			  WHERE dispatched_at IS NULL AND dispatch_attempts < $1
			  ORDER BY created_at ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pending security alerts")
	}
	defer func() { _ = rows.Close() }()

	return collectAlerts(rows)
}

// UpdateDispatchState persists the outcome of a dispatch attempt.
func (p *PostgreSQLAlertRepository) UpdateDispatchState(ctx context.Context, alert *auditDomain.SecurityAlert) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE security_alerts
			  SET dispatch_attempts = $1, dispatched_at = $2, last_dispatch_error = $3
			  WHERE id = $4`

	_, err := querier.ExecContext(
		ctx,
		query,
		alert.DispatchAttempts,
		alert.DispatchedAt,
		alert.LastDispatchError,
		alert.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update alert dispatch state")
	}
	return nil
}

func scanAlert(s scanner) (*auditDomain.SecurityAlert, error) {
	var alert auditDomain.SecurityAlert
	var alertType, severity string
	var principalID uuid.NullUUID
	var sourceIDs []byte

	err := s.Scan(
		&alert.ID,
		&alertType,
		&severity,
		&principalID,
		&alert.IPAddress,
		&alert.Message,
		&sourceIDs,
		&alert.Acknowledged,
		&alert.AcknowledgedAt,
		&alert.DispatchAttempts,
		&alert.DispatchedAt,
		&alert.LastDispatchError,
		&alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	alert.AlertType = auditDomain.AlertType(alertType)
	alert.Severity = auditDomain.Severity(severity)
	if principalID.Valid {
		id := principalID.UUID
		alert.PrincipalID = &id
	}
	if sourceIDs != nil {
		if err := json.Unmarshal(sourceIDs, &alert.SourceEntryIDs); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal source entry ids")
		}
	}
	return &alert, nil
}

func collectAlerts(rows *sql.Rows) ([]*auditDomain.SecurityAlert, error) {
	alerts := make([]*auditDomain.SecurityAlert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan security alert")
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate security alerts")
	}
	return alerts, nil
}

// scanner abstracts *sql.Row and *sql.Rows for alert scanning.
type scanner interface {
	Scan(dest ...any) error
}

// NewPostgreSQLAlertRepository creates a new PostgreSQL security alert repository.
func NewPostgreSQLAlertRepository(db *sql.DB) *PostgreSQLAlertRepository {
	return &PostgreSQLAlertRepository{db: db}
}
