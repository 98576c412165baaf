// Package repository implements key store persistence for PostgreSQL and MySQL.
//
// Rotation updates use conditional UPDATEs on the pre-image of the mutable field
// (optimistic concurrency): the affected-row count tells the caller whether it won
// the swap. Deletion schedule inserts are idempotent on key_id.
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

// PostgreSQLSettingsRepository implements security settings persistence for PostgreSQL.
type PostgreSQLSettingsRepository struct {
	db *sql.DB
}

// Create inserts the security settings row for a newly provisioned principal.
func (p *PostgreSQLSettingsRepository) Create(
	ctx context.Context,
	settings *keystoreDomain.SecuritySettings,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO security_settings (principal_id, master_key_id, last_key_rotation, created_at)
			  VALUES ($1, $2, $3, $4)`

	_, err := querier.ExecContext(
		ctx,
		query,
		settings.PrincipalID,
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
func (p *PostgreSQLSettingsRepository) Get(
	ctx context.Context,
	principalID uuid.UUID,
) (*keystoreDomain.SecuritySettings, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT principal_id, master_key_id, last_key_rotation, created_at
			  FROM security_settings
			  WHERE principal_id = $1`

	var settings keystoreDomain.SecuritySettings
	err := querier.QueryRowContext(ctx, query, principalID).Scan(
		&settings.PrincipalID,
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

	return &settings, nil
}

// CompareAndSwapMasterKey atomically replaces the principal's master key handle,
// but only if the stored handle still matches expectedMasterKeyID. Returns false
// without error when another rotation already won the race.
func (p *PostgreSQLSettingsRepository) CompareAndSwapMasterKey(
	ctx context.Context,
	principalID uuid.UUID,
	expectedMasterKeyID, newMasterKeyID string,
	rotatedAt time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE security_settings
			  SET master_key_id = $1, last_key_rotation = $2
			  WHERE principal_id = $3 AND master_key_id = $4`

	result, err := querier.ExecContext(ctx, query, newMasterKeyID, rotatedAt, principalID, expectedMasterKeyID)
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
func (p *PostgreSQLSettingsRepository) ListMasterKeyDue(
	ctx context.Context,
	before time.Time,
	limit int,
) ([]*keystoreDomain.SecuritySettings, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT principal_id, master_key_id, last_key_rotation, created_at
			  FROM security_settings
			  WHERE last_key_rotation < $1
			  ORDER BY last_key_rotation ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due security settings")
	}
	defer func() { _ = rows.Close() }()

	var results []*keystoreDomain.SecuritySettings
	for rows.Next() {
		var settings keystoreDomain.SecuritySettings
		if err := rows.Scan(
			&settings.PrincipalID,
			&settings.MasterKeyID,
			&settings.LastKeyRotation,
			&settings.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan security settings")
		}
		results = append(results, &settings)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate security settings")
	}

	return results, nil
}

// MasterKeyReferenced reports whether any principal still uses the given master key handle.
func (p *PostgreSQLSettingsRepository) MasterKeyReferenced(
	ctx context.Context,
	masterKeyID string,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS (SELECT 1 FROM security_settings WHERE master_key_id = $1)`

	var referenced bool
	if err := querier.QueryRowContext(ctx, query, masterKeyID).Scan(&referenced); err != nil {
		return false, apperrors.Wrap(err, "failed to check master key references")
	}

	return referenced, nil
}

// NewPostgreSQLSettingsRepository creates a new PostgreSQL security settings repository.
func NewPostgreSQLSettingsRepository(db *sql.DB) *PostgreSQLSettingsRepository {
	return &PostgreSQLSettingsRepository{db: db}
}
