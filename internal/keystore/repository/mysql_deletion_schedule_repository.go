package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/keycore/internal/database"
	apperrors "github.com/allisson/keycore/internal/errors"
	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
)

// MySQLDeletionScheduleRepository implements the key deletion schedule for MySQL.
type MySQLDeletionScheduleRepository struct {
	db *sql.DB
}

// Schedule inserts a deletion schedule entry for a retired key. The insert is
// idempotent: scheduling the same key twice keeps the original entry.
func (m *MySQLDeletionScheduleRepository) Schedule(
	ctx context.Context,
	entry *keystoreDomain.KeyDeletionSchedule,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT IGNORE INTO key_deletion_schedule (key_id, key_type, blob_id, scheduled_deletion, created_at)
			  VALUES (?, ?, ?, ?, ?)`

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
func (m *MySQLDeletionScheduleRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*keystoreDomain.KeyDeletionSchedule, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT key_id, key_type, blob_id, scheduled_deletion, created_at
			  FROM key_deletion_schedule
			  WHERE scheduled_deletion <= ?
			  ORDER BY scheduled_deletion ASC
			  LIMIT ?`

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
func (m *MySQLDeletionScheduleRepository) Delete(ctx context.Context, keyID string) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM key_deletion_schedule WHERE key_id = ?`

	if _, err := querier.ExecContext(ctx, query, keyID); err != nil {
		return apperrors.Wrap(err, "failed to delete key deletion entry")
	}
	return nil
}

// NewMySQLDeletionScheduleRepository creates a new MySQL deletion schedule repository.
func NewMySQLDeletionScheduleRepository(db *sql.DB) *MySQLDeletionScheduleRepository {
	return &MySQLDeletionScheduleRepository{db: db}
}
