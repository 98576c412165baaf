package dto

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

// SecuritySettingsResponse represents a principal's security settings in API responses.
type SecuritySettingsResponse struct {
	PrincipalID     uuid.UUID `json:"principal_id"`
	MasterKeyID     string    `json:"master_key_id"`
	LastKeyRotation time.Time `json:"last_key_rotation"`
	CreatedAt       time.Time `json:"created_at"`
}

// MapSecuritySettingsToResponse converts domain security settings to the API response format.
func MapSecuritySettingsToResponse(s *keystoreDomain.SecuritySettings) SecuritySettingsResponse {
	return SecuritySettingsResponse{
		PrincipalID:     s.PrincipalID,
		MasterKeyID:     s.MasterKeyID,
		LastKeyRotation: s.LastKeyRotation,
		CreatedAt:       s.CreatedAt,
	}
}

// DocumentEncryptionResponse represents a document encryption record in API responses.
// Key material is never included, only identifiers and rotation timestamps.
type DocumentEncryptionResponse struct {
	DocumentID   uuid.UUID `json:"document_id"`
	PrincipalID  uuid.UUID `json:"principal_id"`
	MasterKeyID  string    `json:"master_key_id"`
	Algorithm    string    `json:"algorithm"`
	LastRotation time.Time `json:"last_rotation"`
	CreatedAt    time.Time `json:"created_at"`
}

// MapDocumentEncryptionToResponse converts a domain encryption record to the API response format.
func MapDocumentEncryptionToResponse(d *keystoreDomain.DocumentEncryption) DocumentEncryptionResponse {
	return DocumentEncryptionResponse{
		DocumentID:   d.DocumentID,
		PrincipalID:  d.PrincipalID,
		MasterKeyID:  d.MasterKeyID,
		Algorithm:    string(d.Algorithm),
		LastRotation: d.LastRotation,
		CreatedAt:    d.CreatedAt,
	}
}

// DocumentResponse carries a decrypted document payload, base64-encoded.
type DocumentResponse struct {
	DocumentID uuid.UUID `json:"document_id"`
	Value      string    `json:"value"`
}

// MapDocumentToResponse converts a decrypted payload to the API response format.
func MapDocumentToResponse(documentID uuid.UUID, plaintext []byte) DocumentResponse {
	return DocumentResponse{
		DocumentID: documentID,
		Value:      base64.StdEncoding.EncodeToString(plaintext),
	}
}

// RotationNeedsResponse summarizes what the rotation policy scan found due.
type RotationNeedsResponse struct {
	MasterKeysDue []SecuritySettingsResponse   `json:"master_keys_due"`
	DataKeysDue   []DocumentEncryptionResponse `json:"data_keys_due"`
	NeedingRewrap []DocumentEncryptionResponse `json:"needing_rewrap"`
}

// MapRotationNeedsToResponse converts a policy scan result to the API response format.
func MapRotationNeedsToResponse(needs *rotationUseCase.RotationNeeds) RotationNeedsResponse {
	resp := RotationNeedsResponse{
		MasterKeysDue: make([]SecuritySettingsResponse, 0, len(needs.MasterKeysDue)),
		DataKeysDue:   make([]DocumentEncryptionResponse, 0, len(needs.DataKeysDue)),
		NeedingRewrap: make([]DocumentEncryptionResponse, 0, len(needs.NeedingRewrap)),
	}
	for _, s := range needs.MasterKeysDue {
		resp.MasterKeysDue = append(resp.MasterKeysDue, MapSecuritySettingsToResponse(s))
	}
	for _, d := range needs.DataKeysDue {
		resp.DataKeysDue = append(resp.DataKeysDue, MapDocumentEncryptionToResponse(d))
	}
	for _, d := range needs.NeedingRewrap {
		resp.NeedingRewrap = append(resp.NeedingRewrap, MapDocumentEncryptionToResponse(d))
	}
	return resp
}

// RotationReportResponse summarizes an executed rotation pass.
type RotationReportResponse struct {
	MasterKeysRotated  int `json:"master_keys_rotated"`
	DataKeysRotated    int `json:"data_keys_rotated"`
	DocumentsRewrapped int `json:"documents_rewrapped"`
	Failures           int `json:"failures"`
}

// MapRotationReportToResponse converts a rotation pass report to the API response format.
func MapRotationReportToResponse(report *rotationUseCase.RotationReport) RotationReportResponse {
	return RotationReportResponse{
		MasterKeysRotated:  report.MasterKeysRotated,
		DataKeysRotated:    report.DataKeysRotated,
		DocumentsRewrapped: report.DocumentsRewrapped,
		Failures:           report.Failures,
	}
}
