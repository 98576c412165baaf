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

// MySQLDocumentRepository implements document encryption persistence for MySQL.
// Uses BINARY(16) for UUIDs and BLOB for binary data with transaction support.
type MySQLDocumentRepository struct {
	db *sql.DB
}

// Create inserts a new document encryption record.
func (m *MySQLDocumentRepository) Create(
	ctx context.Context,
	doc *keystoreDomain.DocumentEncryption,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO document_encryption (` + documentColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	documentID, err := doc.DocumentID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal document id")
	}

	principalID, err := doc.PrincipalID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal principal id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		documentID,
		principalID,
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
func (m *MySQLDocumentRepository) Get(
	ctx context.Context,
	documentID uuid.UUID,
) (*keystoreDomain.DocumentEncryption, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + documentColumns + `
			  FROM document_encryption
			  WHERE document_id = ?`

	id, err := documentID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal document id")
	}

	doc, err := scanMySQLDocument(querier.QueryRowContext(ctx, query, id))
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
func (m *MySQLDocumentRepository) CompareAndSwapDataKey(
	ctx context.Context,
	doc *keystoreDomain.DocumentEncryption,
	expectedKeyID string,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE document_encryption
			  SET key_id = ?,
				  master_key_id = ?,
				  wrapped_key = ?,
				  nonce = ?,
				  auth_tag = ?,
				  salt = ?,
				  algorithm = ?,
				  blob_id = ?,
				  last_rotation = ?
			  WHERE document_id = ? AND key_id = ?`

	documentID, err := doc.DocumentID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal document id")
	}

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
		documentID,
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
// record is still wrapped under expectedMasterKeyID. Returns false without error
// when a concurrent rewrap already moved the record.
func (m *MySQLDocumentRepository) SwapWrapping(
	ctx context.Context,
	documentID uuid.UUID,
	expectedMasterKeyID, newMasterKeyID string,
	wrappedKey []byte,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE document_encryption
			  SET master_key_id = ?, wrapped_key = ?
			  WHERE document_id = ? AND master_key_id = ?`

	id, err := documentID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal document id")
	}

	result, err := querier.ExecContext(ctx, query, newMasterKeyID, wrappedKey, id, expectedMasterKeyID)
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
func (m *MySQLDocumentRepository) ListByPrincipal(
	ctx context.Context,
	principalID uuid.UUID,
) ([]*keystoreDomain.DocumentEncryption, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + documentColumns + `
			  FROM document_encryption
			  WHERE principal_id = ?
			  ORDER BY created_at ASC`

	id, err := principalID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal principal id")
	}

	rows, err := querier.QueryContext(ctx, query, id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list documents by principal")
	}
	defer func() { _ = rows.Close() }()

	return collectMySQLDocuments(rows)
}

// ListDataKeyDue returns documents whose data key rotation predates the cutoff,
// ordered oldest first.
func (m *MySQLDocumentRepository) ListDataKeyDue(
	ctx context.Context,
	before time.Time,
	limit int,
) ([]*keystoreDomain.DocumentEncryption, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + documentColumns + `
			  FROM document_encryption
			  WHERE last_rotation < ?
			  ORDER BY last_rotation ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due documents")
	}
	defer func() { _ = rows.Close() }()

	return collectMySQLDocuments(rows)
}

// ListNeedingRewrap returns documents whose wrapping master key no longer matches
// their principal's active master key.
func (m *MySQLDocumentRepository) ListNeedingRewrap(
	ctx context.Context,
	limit int,
) ([]*keystoreDomain.DocumentEncryption, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT d.document_id, d.principal_id, d.key_id, d.master_key_id, d.wrapped_key,
					 d.nonce, d.auth_tag, d.salt, d.algorithm, d.blob_id, d.last_rotation, d.created_at
			  FROM document_encryption d
			  JOIN security_settings s ON s.principal_id = d.principal_id
			  WHERE d.master_key_id <> s.master_key_id
			  ORDER BY d.last_rotation ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list documents needing rewrap")
	}
	defer func() { _ = rows.Close() }()

	return collectMySQLDocuments(rows)
}

// KeyReferenced reports whether the given key handle is still the data key or the
// wrapping master key of any document.
func (m *MySQLDocumentRepository) KeyReferenced(
	ctx context.Context,
	keyID string,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT EXISTS (
				SELECT 1 FROM document_encryption WHERE key_id = ? OR master_key_id = ?
			  )`

	var referenced bool
	if err := querier.QueryRowContext(ctx, query, keyID, keyID).Scan(&referenced); err != nil {
		return false, apperrors.Wrap(err, "failed to check data key references")
	}

	return referenced, nil
}

func scanMySQLDocument(s scanner) (*keystoreDomain.DocumentEncryption, error) {
	var doc keystoreDomain.DocumentEncryption
	var documentIDBytes, principalIDBytes []byte
	err := s.Scan(
		&documentIDBytes,
		&principalIDBytes,
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
	if err := doc.DocumentID.UnmarshalBinary(documentIDBytes); err != nil {
		return nil, err
	}
	if err := doc.PrincipalID.UnmarshalBinary(principalIDBytes); err != nil {
		return nil, err
	}
	return &doc, nil
}

func collectMySQLDocuments(rows *sql.Rows) ([]*keystoreDomain.DocumentEncryption, error) {
	var results []*keystoreDomain.DocumentEncryption
	for rows.Next() {
		doc, err := scanMySQLDocument(rows)
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

// NewMySQLDocumentRepository creates a new MySQL document encryption repository.
func NewMySQLDocumentRepository(db *sql.DB) *MySQLDocumentRepository {
	return &MySQLDocumentRepository{db: db}
}
