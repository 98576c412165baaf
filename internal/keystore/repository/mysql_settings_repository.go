package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/keycore/internal/database"
	apperrors "github.com/allisson/keycore/internal/errors"
	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
)

// MySQLSettingsRepository implements security settings persistence for MySQL.
// Uses BINARY(16) for UUIDs with transaction support via database.GetTx().
type MySQLSettingsRepository struct {
	db *sql.DB
}

// Create inserts the security settings row for a newly provisioned principal.
func (m *MySQLSettingsRepository) Create(
	ctx context.Context,
	settings *keystoreDomain.SecuritySettings,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO security_settings (principal_id, master_key_id, last_key_rotation, created_at)
			  VALUES (?, ?, ?, ?)`

	principalID, err := settings.PrincipalID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal principal id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		principalID,
		settings.MasterKeyID,
		settings.LastKeyRotation,
		settings.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create security settings")
	}
	return nil
}

// Get retrieves the security settings for a principal.
func (m *MySQLSettingsRepository) Get(
	ctx context.Context,
	principalID uuid.UUID,
) (*keystoreDomain.SecuritySettings, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT principal_id, master_key_id, last_key_rotation, created_at
			  FROM security_settings
			  WHERE principal_id = ?`

	id, err := principalID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal principal id")
	}

	var settings keystoreDomain.SecuritySettings
	var idBytes []byte

	err = querier.QueryRowContext(ctx, query, id).Scan(
		&idBytes,
		&settings.MasterKeyID,
		&settings.LastKeyRotation,
		&settings.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, keystoreDomain.ErrSettingsNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get security settings")
	}

	if err := settings.PrincipalID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal principal id")
	}

	return &settings, nil
}

// CompareAndSwapMasterKey atomically replaces the principal's master key handle,
// but only if the stored handle still matches expectedMasterKeyID. Returns false
// without error when another rotation already won the race.
func (m *MySQLSettingsRepository) CompareAndSwapMasterKey(
	ctx context.Context,
	principalID uuid.UUID,
	expectedMasterKeyID, newMasterKeyID string,
	rotatedAt time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE security_settings
			  SET master_key_id = ?, last_key_rotation = ?
			  WHERE principal_id = ? AND master_key_id = ?`

	id, err := principalID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal principal id")
	}

	result, err := querier.ExecContext(ctx, query, newMasterKeyID, rotatedAt, id, expectedMasterKeyID)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to swap master key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}

	return affected == 1, nil
}

// ListMasterKeyDue returns principals whose last rotation predates the given cutoff,
// ordered oldest first.
func (m *MySQLSettingsRepository) ListMasterKeyDue(
	ctx context.Context,
	before time.Time,
	limit int,
) ([]*keystoreDomain.SecuritySettings, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT principal_id, master_key_id, last_key_rotation, created_at
			  FROM security_settings
			  WHERE last_key_rotation < ?
			  ORDER BY last_key_rotation ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due security settings")
	}
	defer func() { _ = rows.Close() }()

	var results []*keystoreDomain.SecuritySettings
	for rows.Next() {
		var settings keystoreDomain.SecuritySettings
		var idBytes []byte
		if err := rows.Scan(
			&idBytes,
			&settings.MasterKeyID,
			&settings.LastKeyRotation,
			&settings.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan security settings")
		}
		if err := settings.PrincipalID.UnmarshalBinary(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal principal id")
		}
		results = append(results, &settings)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate security settings")
	}

	return results, nil
}

// MasterKeyReferenced reports whether any principal still uses the given master key handle.
func (m *MySQLSettingsRepository) MasterKeyReferenced(
	ctx context.Context,
	masterKeyID string,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT EXISTS (SELECT 1 FROM security_settings WHERE master_key_id = ?)`

	var referenced bool
	if err := querier.QueryRowContext(ctx, query, masterKeyID).Scan(&referenced); err != nil {
		return false, apperrors.Wrap(err, "failed to check master key references")
	}

	return referenced, nil
}

// NewMySQLSettingsRepository creates a new MySQL security settings repository.
func NewMySQLSettingsRepository(db *sql.DB) *MySQLSettingsRepository {
	return &MySQLSettingsRepository{db: db}
}
