package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db, mock
}

func TestPostgreSQLSettingsRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLSettingsRepository(db)

	settings := &keystoreDomain.SecuritySettings{
		PrincipalID:     uuid.Must(uuid.NewV7()),
		MasterKeyID:     "master-key-1",
		LastKeyRotation: time.Now().UTC(),
		CreatedAt:       time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO security_settings")).
		WithArgs(settings.PrincipalID, settings.MasterKeyID, settings.LastKeyRotation, settings.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), settings)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLSettingsRepository_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLSettingsRepository(db)
	ctx := context.Background()

	principalID := uuid.Must(uuid.NewV7())
	rotatedAt := time.Now().UTC()
	createdAt := rotatedAt.Add(-time.Hour)

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"principal_id", "master_key_id", "last_key_rotation", "created_at"}).
			AddRow(principalID, "master-key-1", rotatedAt, createdAt)

		mock.ExpectQuery("SELECT principal_id, master_key_id").
			WithArgs(principalID).
			WillReturnRows(rows)

		settings, err := repo.Get(ctx, principalID)
		require.NoError(t, err)
		assert.Equal(t, principalID, settings.PrincipalID)
		assert.Equal(t, "master-key-1", settings.MasterKeyID)
		assert.WithinDuration(t, rotatedAt, settings.LastKeyRotation, time.Second)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT principal_id, master_key_id").
			WithArgs(principalID).
			WillReturnError(sql.ErrNoRows)

		settings, err := repo.Get(ctx, principalID)
		assert.Nil(t, settings)
		assert.ErrorIs(t, err, keystoreDomain.ErrSettingsNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLSettingsRepository_CompareAndSwapMasterKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLSettingsRepository(db)
	ctx := context.Background()

	principalID := uuid.Must(uuid.NewV7())
	rotatedAt := time.Now().UTC()

	t.Run("swap wins", func(t *testing.T) {
		mock.ExpectExec("UPDATE security_settings").
			WithArgs("master-key-2", rotatedAt, principalID, "master-key-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		swapped, err := repo.CompareAndSwapMasterKey(ctx, principalID, "master-key-1", "master-key-2", rotatedAt)
		require.NoError(t, err)
		assert.True(t, swapped)
	})

	t.Run("swap loses to concurrent rotation", func(t *testing.T) {
		mock.ExpectExec("UPDATE security_settings").
			WithArgs("master-key-3", rotatedAt, principalID, "master-key-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		swapped, err := repo.CompareAndSwapMasterKey(ctx, principalID, "master-key-1", "master-key-3", rotatedAt)
		require.NoError(t, err)
		assert.False(t, swapped)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLSettingsRepository_ListMasterKeyDue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLSettingsRepository(db)

	cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)
	first := uuid.Must(uuid.NewV7())
	second := uuid.Must(uuid.NewV7())

	rows := sqlmock.NewRows([]string{"principal_id", "master_key_id", "last_key_rotation", "created_at"}).
		AddRow(first, "master-key-1", cutoff.Add(-48*time.Hour), cutoff.Add(-72*time.Hour)).
		AddRow(second, "master-key-2", cutoff.Add(-24*time.Hour), cutoff.Add(-36*time.Hour))

	mock.ExpectQuery("SELECT principal_id, master_key_id").
		WithArgs(cutoff, 100).
		WillReturnRows(rows)

	results, err := repo.ListMasterKeyDue(context.Background(), cutoff, 100)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, first, results[0].PrincipalID)
	assert.Equal(t, second, results[1].PrincipalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLSettingsRepository_MasterKeyReferenced(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLSettingsRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("master-key-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	referenced, err := repo.MasterKeyReferenced(context.Background(), "master-key-1")
	require.NoError(t, err)
	assert.True(t, referenced)
	assert.NoError(t, mock.ExpectationsWereMet())
}
