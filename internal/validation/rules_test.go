package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUID(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{
			name:      "valid uuid",
			input:     "3f2a8c1e-9b4d-4e6f-8a2b-1c3d5e7f9a0b",
			shouldErr: false,
		},
		{
			name:      "valid uppercase uuid",
			input:     "3F2A8C1E-9B4D-4E6F-8A2B-1C3D5E7F9A0B",
			shouldErr: false,
		},
		{
			name:      "empty string is skipped",
			input:     "",
			shouldErr: false,
		},
		{
			name:      "not a uuid",
			input:     "not-a-uuid",
			shouldErr: true,
		},
		{
			name:      "truncated uuid",
			input:     "3f2a8c1e-9b4d-4e6f-8a2b",
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := UUID.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUUID_NonString(t *testing.T) {
	err := UUID.Validate(42)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be a string")
}

func TestBase64(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{
			name:      "valid base64",
			input:     "aGVsbG8gd29ybGQ=",
			shouldErr: false,
		},
		{
			name:      "empty string is skipped",
			input:     "",
			shouldErr: false,
		},
		{
			name:      "invalid characters",
			input:     "not base64!!",
			shouldErr: true,
		},
		{
			name:      "bad padding",
			input:     "aGVsbG8",
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Base64.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWrapValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error returns nil",
			err:      nil,
			expected: false,
		},
		{
			name:     "wraps validation error",
			err:      assert.AnError,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WrapValidationError(tt.err)
			if tt.expected {
				assert.Error(t, result)
				assert.Contains(t, result.Error(), "invalid input")
			} else {
				assert.NoError(t, result)
			}
		})
	}
}
