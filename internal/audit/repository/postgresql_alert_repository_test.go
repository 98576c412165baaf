package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

func newAlert(t *testing.T) *auditDomain.SecurityAlert {
	t.Helper()

	principalID := uuid.Must(uuid.NewV7())
	return &auditDomain.SecurityAlert{
		ID:          uuid.Must(uuid.NewV7()),
		AlertType:   auditDomain.AlertBruteForce,
		Severity:    auditDomain.SeverityHigh,
		PrincipalID: &principalID,
		IPAddress:   "203.0.113.10",
		Message:     "5 failed auth attempts from 203.0.113.10",
		SourceEntryIDs: []uuid.UUID{
			uuid.Must(uuid.NewV7()),
			uuid.Must(uuid.NewV7()),
		},
		CreatedAt: time.Now().UTC(),
	}
}

func alertRows(t *testing.T, alert *auditDomain.SecurityAlert) *sqlmock.Rows {
	t.Helper()

	sourceIDs, err := json.Marshal(alert.SourceEntryIDs)
	require.NoError(t, err)

	return sqlmock.NewRows([]string{
		"id", "alert_type", "severity", "principal_id", "ip_address", "message",
		"source_entry_ids", "acknowledged", "acknowledged_at", "dispatch_attempts",
		"dispatched_at", "last_dispatch_error", "created_at",
	}).AddRow(
		alert.ID,
		string(alert.AlertType),
		string(alert.Severity),
		*alert.PrincipalID,
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
}

func TestPostgreSQLAlertRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLAlertRepository(db)

	alert := newAlert(t)
	sourceIDs, err := json.Marshal(alert.SourceEntryIDs)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO security_alerts")).
		WithArgs(
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
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), alert)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAlertRepository_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLAlertRepository(db)
	ctx := context.Background()

	alert := newAlert(t)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("FROM security_alerts WHERE id").
			WithArgs(alert.ID).
			WillReturnRows(alertRows(t, alert))

		got, err := repo.Get(ctx, alert.ID)
		require.NoError(t, err)
		assert.Equal(t, alert.ID, got.ID)
		assert.Equal(t, auditDomain.AlertBruteForce, got.AlertType)
		require.NotNil(t, got.PrincipalID)
		assert.Equal(t, *alert.PrincipalID, *got.PrincipalID)
		assert.Equal(t, alert.SourceEntryIDs, got.SourceEntryIDs)
		assert.False(t, got.Acknowledged)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("FROM security_alerts WHERE id").
			WithArgs(alert.ID).
			WillReturnError(sql.ErrNoRows)

		got, err := repo.Get(ctx, alert.ID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, auditDomain.ErrAlertNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAlertRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLAlertRepository(db)

	alert := newAlert(t)
	unacknowledged := false

	mock.ExpectQuery("ORDER BY id DESC").
		WithArgs(25, 0, &unacknowledged).
		WillReturnRows(alertRows(t, alert))

	alerts, err := repo.List(context.Background(), 0, 25, &unacknowledged)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.ID, alerts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAlertRepository_Acknowledge(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLAlertRepository(db)
	ctx := context.Background()

	alertID := uuid.Must(uuid.NewV7())
	at := time.Now().UTC()

	t.Run("acknowledged", func(t *testing.T) {
		mock.ExpectExec("UPDATE security_alerts").
			WithArgs(at, alertID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		acked, err := repo.Acknowledge(ctx, alertID, at)
		require.NoError(t, err)
		assert.True(t, acked)
	})

	t.Run("already acknowledged", func(t *testing.T) {
		mock.ExpectExec("UPDATE security_alerts").
			WithArgs(at, alertID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		acked, err := repo.Acknowledge(ctx, alertID, at)
		require.NoError(t, err)
		assert.False(t, acked)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAlertRepository_ListPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLAlertRepository(db)

	alert := newAlert(t)

	mock.ExpectQuery("dispatched_at IS NULL").
		WithArgs(5, 100).
		WillReturnRows(alertRows(t, alert))

	alerts, err := repo.ListPending(context.Background(), 100, 5)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.ID, alerts[0].ID)
	assert.Zero(t, alerts[0].DispatchAttempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAlertRepository_UpdateDispatchState(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLAlertRepository(db)

	alert := newAlert(t)
	alert.DispatchAttempts = 2
	lastErr := "webhook returned 503"
	alert.LastDispatchError = &lastErr

	mock.ExpectExec("SET dispatch_attempts").
		WithArgs(alert.DispatchAttempts, alert.DispatchedAt, alert.LastDispatchError, alert.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateDispatchState(context.Background(), alert)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
