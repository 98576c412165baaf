// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	envelopeDomain "github.com/allisson/keycore/internal/envelope/domain"
	customValidation "github.com/allisson/keycore/internal/validation"
)

// StoreDocumentRequest contains the parameters for storing an encrypted document.
// The document id is extracted from the URL parameter, not the request body.
type StoreDocumentRequest struct {
	PrincipalID string `json:"principal_id" binding:"required"`
	Value       string `json:"value"        binding:"required"`
	Algorithm   string `json:"algorithm"`
}

// Validate checks if the store document request is valid.
func (r *StoreDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.PrincipalID, validation.Required, customValidation.UUID),
		validation.Field(&r.Value, validation.Required, customValidation.Base64),
		validation.Field(&r.Algorithm,
			validation.In(string(envelopeDomain.AESGCM), string(envelopeDomain.ChaCha20)),
		),
	)
}

// EffectiveAlgorithm returns the requested algorithm, defaulting to AES-GCM.
func (r *StoreDocumentRequest) EffectiveAlgorithm() envelopeDomain.Algorithm {
	if r.Algorithm == "" {
		return envelopeDomain.AESGCM
	}
	return envelopeDomain.Algorithm(r.Algorithm)
}
