package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/keycore/internal/database"
	apperrors "github.com/allisson/keycore/internal/errors"
	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
)

// PostgreSQLDeletionScheduleRepository implements the key deletion schedule for PostgreSQL.
type PostgreSQLDeletionScheduleRepository struct {
	db *sql.DB
}

// Schedule inserts a deletion schedule entry for a retired key. The insert is
// idempotent: scheduling the same key twice keeps the original entry.
func (p *PostgreSQLDeletionScheduleRepository) Schedule(
	ctx context.Context,
	entry *keystoreDomain.KeyDeletionSchedule,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO key_deletion_schedule (key_id, key_type, blob_id, scheduled_deletion, created_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (key_id) DO NOTHING`

	_, err := querier.ExecContext(
		ctx,
		query,
		entry.KeyID,
		entry.KeyType,
		entry.BlobID,
		entry.ScheduledDeletion,
		entry.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to schedule key deletion")
	}
	return nil
}

// ListDue returns entries whose scheduled deletion time has passed, oldest first.
func (p *PostgreSQLDeletionScheduleRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*keystoreDomain.KeyDeletionSchedule, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT key_id, key_type, blob_id, scheduled_deletion, created_at
			  FROM key_deletion_schedule
			  WHERE scheduled_deletion <= $1
			  ORDER BY scheduled_deletion ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due key deletions")
	}
	defer func() { _ = rows.Close() }()

	var results []*keystoreDomain.KeyDeletionSchedule
	for rows.Next() {
		var entry keystoreDomain.KeyDeletionSchedule
		if err := rows.Scan(
			&entry.KeyID,
			&entry.KeyType,
			&entry.BlobID,
			&entry.ScheduledDeletion,
			&entry.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key deletion entry")
		}
		results = append(results, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate key deletion entries")
	}

	return results, nil
}

// Delete removes a schedule entry once the key has been destroyed.
func (p *PostgreSQLDeletionScheduleRepository) Delete(ctx context.Context, keyID string) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM key_deletion_schedule WHERE key_id = $1`

	if _, err := querier.ExecContext(ctx, query, keyID); err != nil {
		return apperrors.Wrap(err, "failed to delete key deletion entry")
	}
	return nil
}

// NewPostgreSQLDeletionScheduleRepository creates a new PostgreSQL deletion schedule repository.
func NewPostgreSQLDeletionScheduleRepository(db *sql.DB) *PostgreSQLDeletionScheduleRepository {
	return &PostgreSQLDeletionScheduleRepository{db: db}
}
