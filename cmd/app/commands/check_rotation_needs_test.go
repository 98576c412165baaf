package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

func TestRunCheckRotationNeeds(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	principalID := uuid.New()
	documentID := uuid.New()

	needs := &rotationUseCase.RotationNeeds{
		MasterKeysDue: []*keystoreDomain.SecuritySettings{
			{PrincipalID: principalID, MasterKeyID: "mk-001", LastKeyRotation: time.Now().AddDate(0, -4, 0)},
		},
		DataKeysDue: []*keystoreDomain.DocumentEncryption{
			{DocumentID: documentID, PrincipalID: principalID, LastRotation: time.Now().AddDate(0, -2, 0)},
		},
	}

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &mockRotationUseCase{}
		mockUseCase.On("CheckRotationNeeds", ctx).Return(needs, nil)

		var out bytes.Buffer
		err := RunCheckRotationNeeds(ctx, mockUseCase, logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Master keys due for rotation: 1")
		require.Contains(t, out.String(), "principal "+principalID.String())
		require.Contains(t, out.String(), "Data keys due for rotation: 1")
		require.Contains(t, out.String(), "document "+documentID.String())
		require.Contains(t, out.String(), "Documents needing rewrap: 0")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &mockRotationUseCase{}
		mockUseCase.On("CheckRotationNeeds", ctx).Return(needs, nil)

		var out bytes.Buffer
		err := RunCheckRotationNeeds(ctx, mockUseCase, logger, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"master_keys_due"`)
		require.Contains(t, out.String(), principalID.String())
		require.Contains(t, out.String(), `"needing_rewrap": []`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("scan-error", func(t *testing.T) {
		mockUseCase := &mockRotationUseCase{}
		mockUseCase.On("CheckRotationNeeds", ctx).Return(nil, errors.New("scan failed"))

		var out bytes.Buffer
		err := RunCheckRotationNeeds(ctx, mockUseCase, logger, &out, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "scan failed")
	})
}

func TestRunRotateDue(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	report := &rotationUseCase.RotationReport{
		MasterKeysRotated:  2,
		DataKeysRotated:    5,
		DocumentsRewrapped: 7,
		Failures:           1,
	}

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &mockRotationUseCase{}
		mockUseCase.On("RotateDue", ctx).Return(report, nil)

		var out bytes.Buffer
		err := RunRotateDue(ctx, mockUseCase, logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Master keys rotated: 2")
		require.Contains(t, out.String(), "Data keys rotated: 5")
		require.Contains(t, out.String(), "Documents rewrapped: 7")
		require.Contains(t, out.String(), "Failures: 1")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &mockRotationUseCase{}
		mockUseCase.On("RotateDue", ctx).Return(report, nil)

		var out bytes.Buffer
		err := RunRotateDue(ctx, mockUseCase, logger, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"master_keys_rotated": 2`)
		require.Contains(t, out.String(), `"failures": 1`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("rotation-error", func(t *testing.T) {
		mockUseCase := &mockRotationUseCase{}
		mockUseCase.On("RotateDue", ctx).Return(nil, errors.New("pool exhausted"))

		var out bytes.Buffer
		err := RunRotateDue(ctx, mockUseCase, logger, &out, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "pool exhausted")
	})
}
