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

// MySQLAlertRepository implements security alert persistence for MySQL.
// Uses BINARY(16) for UUIDs with transaction support via database.GetTx().
type MySQLAlertRepository struct {
	db *sql.DB
}

// Create stores a new security alert.
func (m *MySQLAlertRepository) Create(ctx context.Context, alert *auditDomain.SecurityAlert) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO security_alerts (` + alertColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := alert.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal alert id")
	}

	var principalID []byte
	if alert.PrincipalID != nil {
		principalID, err = alert.PrincipalID.MarshalBinary()
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal principal id")
		}
	}

	sourceIDs, err := json.Marshal(alert.SourceEntryIDs)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal source entry ids")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		string(alert.AlertType),
		string(alert.Severity),
		principalID,
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
func (m *MySQLAlertRepository) Get(ctx context.Context, alertID uuid.UUID) (*auditDomain.SecurityAlert, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + alertColumns + ` FROM security_alerts WHERE id = ?`

	id, err := alertID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal alert id")
	}

	alert, err := scanMySQLAlert(querier.QueryRowContext(ctx, query, id))
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
func (m *MySQLAlertRepository) List(
	ctx context.Context,
	offset, limit int,
	acknowledged *bool,
) ([]*auditDomain.SecurityAlert, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + alertColumns + `
			  FROM security_alerts
			  WHERE (? IS NULL OR acknowledged = ?)
			  ORDER BY created_at DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, acknowledged, acknowledged, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list security alerts")
	}
	defer func() { _ = rows.Close() }()

	alerts := make([]*auditDomain.SecurityAlert, 0)
	for rows.Next() {
		alert, err := scanMySQLAlert(rows)
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

// Acknowledge marks an alert as handled. Returns false without error when the
// alert was already acknowledged (or does not exist); callers distinguish the
// two with Get.
func (m *MySQLAlertRepository) Acknowledge(
	ctx context.Context,
	alertID uuid.UUID,
	at time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE security_alerts
			  SET acknowledged = TRUE, acknowledged_at = ?
			  WHERE id = ? AND acknowledged = FALSE`

	id, err := alertID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal alert id")
	}

	result, err := querier.ExecContext(ctx, query, at, id)
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
func (m *MySQLAlertRepository) ListPending(
	ctx context.Context,
	limit, maxAttempts int,
) ([]*auditDomain.SecurityAlert, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + alertColumns + `
			  FROM security_alerts
			  WHERE dispatched_at IS NULL AND dispatch_attempts < ?
			  ORDER BY created_at ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pending security alerts")
	}
	defer func() { _ = rows.Close() }()

	alerts := make([]*auditDomain.SecurityAlert, 0)
	for rows.Next() {
		alert, err := scanMySQLAlert(rows)
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

// UpdateDispatchState persists the outcome of a dispatch attempt.
func (m *MySQLAlertRepository) UpdateDispatchState(ctx context.Context, alert *auditDomain.SecurityAlert) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE security_alerts
			  SET dispatch_attempts = ?, dispatched_at = ?, last_dispatch_error = ?
			  WHERE id = ?`

	id, err := alert.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal alert id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		alert.DispatchAttempts,
		alert.DispatchedAt,
		alert.LastDispatchError,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update alert dispatch state")
	}
	return nil
}

func scanMySQLAlert(s scanner) (*auditDomain.SecurityAlert, error) {
	var alert auditDomain.SecurityAlert
	var alertType, severity string
	var idBytes, principalBytes, sourceIDs []byte

	err := s.Scan(
		&idBytes,
		&alertType,
		&severity,
		&principalBytes,
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

	if err := alert.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal alert id")
	}
	alert.AlertType = auditDomain.AlertType(alertType)
	alert.Severity = auditDomain.Severity(severity)
	if principalBytes != nil {
		var id uuid.UUID
		if err := id.UnmarshalBinary(principalBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal principal id")
		}
		alert.PrincipalID = &id
	}
	if sourceIDs != nil {
		if err := json.Unmarshal(sourceIDs, &alert.SourceEntryIDs); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal source entry ids")
		}
	}
	return &alert, nil
}

// NewMySQLAlertRepository creates a new MySQL security alert repository.
func NewMySQLAlertRepository(db *sql.DB) *MySQLAlertRepository {
	return &MySQLAlertRepository{db: db}
}
