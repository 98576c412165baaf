package domain

import (
	"github.com/allisson/keycore/internal/errors"
)

var (
	// ErrSettingsNotFound indicates no security settings row exists for the principal.
	ErrSettingsNotFound = errors.Wrap(errors.ErrNotFound, "security settings not found")

	// ErrDocumentNotFound indicates no encryption record exists for the document.
	ErrDocumentNotFound = errors.Wrap(errors.ErrNotFound, "document encryption not found")

	// ErrSettingsExist indicates security settings were already provisioned for the principal.
	ErrSettingsExist = errors.Wrap(errors.ErrConflict, "security settings already exist")
)
