package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRunRotateMasterKey(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	principalID := uuid.New()

	t.Run("success", func(t *testing.T) {
		mockUseCase := &mockRotationUseCase{}
		mockUseCase.On("RotateMasterKey", ctx, principalID).Return(nil)

		var out bytes.Buffer
		err := RunRotateMasterKey(ctx, mockUseCase, logger, &out, principalID.String())

		require.NoError(t, err)
		require.Contains(t, out.String(), "Master key rotated for principal "+principalID.String())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("rotation-error", func(t *testing.T) {
		mockUseCase := &mockRotationUseCase{}
		mockUseCase.On("RotateMasterKey", ctx, principalID).Return(errors.New("oracle unavailable"))

		var out bytes.Buffer
		err := RunRotateMasterKey(ctx, mockUseCase, logger, &out, principalID.String())

		require.Error(t, err)
		require.Contains(t, err.Error(), "oracle unavailable")
	})

	t.Run("invalid-principal-id", func(t *testing.T) {
		mockUseCase := &mockRotationUseCase{}

		err := RunRotateMasterKey(ctx, mockUseCase, logger, &bytes.Buffer{}, "not-a-uuid")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid principal-id")
		mockUseCase.AssertNotCalled(t, "RotateMasterKey")
	})
}

func TestRunRotateDocumentKey(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	documentID := uuid.New()

	t.Run("success", func(t *testing.T) {
		mockUseCase := &mockRotationUseCase{}
		mockUseCase.On("RotateDocumentKey", ctx, documentID).Return(nil)

		var out bytes.Buffer
		err := RunRotateDocumentKey(ctx, mockUseCase, logger, &out, documentID.String())

		require.NoError(t, err)
		require.Contains(t, out.String(), "Data key rotated for document "+documentID.String())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-document-id", func(t *testing.T) {
		mockUseCase := &mockRotationUseCase{}

		err := RunRotateDocumentKey(ctx, mockUseCase, logger, &bytes.Buffer{}, "nope")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid document-id")
	})
}
