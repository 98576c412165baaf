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

const documentColumns = `document_id, principal_id, key_id, master_key_id, wrapped_key,
			  nonce, auth_tag, salt, algorithm, blob_id, last_rotation, created_at`

// PostgreSQLDocumentRepository implements document encryption persistence for PostgreSQL.
type PostgreSQLDocumentRepository struct {
	db *sql.DB
}

// Create inserts a new document encryption record.
func (p *PostgreSQLDocumentRepository) Create(
	ctx context.Context,
	doc *keystoreDomain.DocumentEncryption,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO document_encryption (` + documentColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := querier.ExecContext(
		ctx,
		query,
		doc.DocumentID,
		doc.PrincipalID,
		doc.KeyID,
		doc.MasterKeyID,
		doc.WrappedKey,
		doc.Nonce,
		doc.AuthTag,
		doc.Salt,
		doc.Algorithm,
		doc.BlobID,
		doc.LastRotation,
		doc.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create document encryption")
	}
	return nil
}

// Get retrieves the encryption record for a document.
func (p *PostgreSQLDocumentRepository) Get(
	ctx context.Context,
	documentID uuid.UUID,
) (*keystoreDomain.DocumentEncryption, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + documentColumns + `
			  FROM document_encryption
			  WHERE document_id = $1`

	doc, err := scanDocument(querier.QueryRowContext(ctx, query, documentID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, keystoreDomain.ErrDocumentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get document encryption")
	}

	return doc, nil
}

// CompareAndSwapDataKey atomically replaces a document's data key, blob pointer,
// and cipher parameters, but only if the stored key_id still matches
// expectedKeyID. Returns false without error when another rotation already won.
func (p *PostgreSQLDocumentRepository) CompareAndSwapDataKey(
	ctx context.Context,
	doc *keystoreDomain.DocumentEncryption,
	expectedKeyID string,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE document_encryption
			  SET key_id = $1,
				  master_key_id = $2,
				  wrapped_key = $3,
				  nonce = $4,
				  auth_tag = $5,
				  salt = $6,
				  algorithm = $7,
				  blob_id = $8,
				  last_rotation = $9
			  WHERE document_id = $10 AND key_id = $11`

	result, err := querier.ExecContext(
		ctx,
		query,
		doc.KeyID,
		doc.MasterKeyID,
		doc.WrappedKey,
		doc.Nonce,
		doc.AuthTag,
		doc.Salt,
		doc.Algorithm,
		doc.BlobID,
		doc.LastRotation,
		doc.DocumentID,
		expectedKeyID,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to swap data key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}

	return affected == 1, nil
}

// SwapWrapping replaces the wrapped form of a document's data key, but only if the
// record is still wrapped under expectedMasterKeyID. The data key payload and the
// blob are untouched; only the wrapping changes. Returns false without error when
// a concurrent rewrap already moved the record.
func (p *PostgreSQLDocumentRepository) SwapWrapping(
	ctx context.Context,
	documentID uuid.UUID,
	expectedMasterKeyID, newMasterKeyID string,
	wrappedKey []byte,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE document_encryption
			  SET master_key_id = $1, wrapped_key = $2
			  WHERE document_id = $3 AND master_key_id = $4`

	result, err := querier.ExecContext(ctx, query, newMasterKeyID, wrappedKey, documentID, expectedMasterKeyID)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to swap data key wrapping")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}

	return affected == 1, nil
}

// ListByPrincipal returns all encryption records belonging to a principal.
func (p *PostgreSQLDocumentRepository) ListByPrincipal(
	ctx context.Context,
	principalID uuid.UUID,
) ([]*keystoreDomain.DocumentEncryption, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + documentColumns + `
			  FROM document_encryption
			  WHERE principal_id = $1
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, principalID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list documents by principal")
	}
	defer func() { _ = rows.Close() }()

	return collectDocuments(rows)
}

// ListDataKeyDue returns documents whose data key rotation predates the cutoff,
// ordered oldest first.
func (p *PostgreSQLDocumentRepository) ListDataKeyDue(
	ctx context.Context,
	before time.Time,
	limit int,
) ([]*keystoreDomain.DocumentEncryption, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + documentColumns + `
			  FROM document_encryption
			  WHERE last_rotation < $1
			  ORDER BY last_rotation ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due documents")
	}
	defer func() { _ = rows.Close() }()

	return collectDocuments(rows)
}

// ListNeedingRewrap returns documents whose wrapping master key no longer matches
// their principal's active master key (rewraps left behind by a failed pass).
func (p *PostgreSQLDocumentRepository) ListNeedingRewrap(
	ctx context.Context,
	limit int,
) ([]*keystoreDomain.DocumentEncryption, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT d.document_id, d.principal_id, d.key_id, d.master_key_id, d.wrapped_key,
					 d.nonce, d.auth_tag, d.salt, d.algorithm, d.blob_id, d.last_rotation, d.created_at
			  FROM document_encryption d
			  JOIN security_settings s ON s.principal_id = d.principal_id
			  WHERE d.master_key_id <> s.master_key_id
			  ORDER BY d.last_rotation ASC
			  LIMIT $1`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list documents needing rewrap")
	}
	defer func() { _ = rows.Close() }()

	return collectDocuments(rows)
}

// KeyReferenced reports whether the given key handle is still the data key or the
// wrapping master key of any document.
func (p *PostgreSQLDocumentRepository) KeyReferenced(
	ctx context.Context,
	keyID string,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS (
				SELECT 1 FROM document_encryption WHERE key_id = $1 OR master_key_id = $1
			  )`

	var referenced bool
	if err := querier.QueryRowContext(ctx, query, keyID).Scan(&referenced); err != nil {
		return false, apperrors.Wrap(err, "failed to check data key references")
	}

	return referenced, nil
}

// scanner abstracts *sql.Row and *sql.Rows for document scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*keystoreDomain.DocumentEncryption, error) {
	var doc keystoreDomain.DocumentEncryption
	err := s.Scan(
		&doc.DocumentID,
		&doc.PrincipalID,
		&doc.KeyID,
		&doc.MasterKeyID,
		&doc.WrappedKey,
		&doc.Nonce,
		&doc.AuthTag,
		&doc.Salt,
		&doc.Algorithm,
		&doc.BlobID,
		&doc.LastRotation,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]*keystoreDomain.DocumentEncryption, error) {
	var results []*keystoreDomain.DocumentEncryption
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan document encryption")
		}
		results = append(results, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate document encryption rows")
	}
	return results, nil
}

// NewPostgreSQLDocumentRepository creates a new PostgreSQL document encryption repository.
func NewPostgreSQLDocumentRepository(db *sql.DB) *PostgreSQLDocumentRepository {
	return &PostgreSQLDocumentRepository{db: db}
}
