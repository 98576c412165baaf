package domain

import "github.com/allisson/keycore/internal/errors"

var (
	// ErrAlertNotFound is returned when a security alert does not exist.
	ErrAlertNotFound = errors.Wrap(errors.ErrNotFound, "security alert not found")
)
