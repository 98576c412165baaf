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

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

func TestRunSecurityMetrics(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	principalID := uuid.New()

	metrics := &auditDomain.SecurityMetrics{
		TotalEntries: 42,
		BySeverity: map[auditDomain.Severity]int{
			auditDomain.SeverityHigh: 7,
		},
		ByType: map[auditDomain.EventType]int{
			auditDomain.EventAuthAttempt: 30,
		},
		TopIPs: []auditDomain.IPCount{
			{IPAddress: "203.0.113.9", Count: 12},
		},
		TopPrincipals: []auditDomain.PrincipalCount{
			{PrincipalID: principalID, Count: 9},
		},
	}

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &mockAuditUseCase{}
		mockUseCase.On("GetMetrics", ctx, 24*time.Hour, 10).Return(metrics, nil)

		var out bytes.Buffer
		err := RunSecurityMetrics(ctx, mockUseCase, logger, &out, "24h", 10, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Total entries: 42")
		require.Contains(t, out.String(), "high: 7")
		require.Contains(t, out.String(), "auth_attempt: 30")
		require.Contains(t, out.String(), "203.0.113.9: 12")
		require.Contains(t, out.String(), principalID.String()+": 9")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &mockAuditUseCase{}
		mockUseCase.On("GetMetrics", ctx, 30*time.Minute, 5).Return(metrics, nil)

		var out bytes.Buffer
		err := RunSecurityMetrics(ctx, mockUseCase, logger, &out, "30m", 5, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"total_entries": 42`)
		require.Contains(t, out.String(), `"ip_address": "203.0.113.9"`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-window", func(t *testing.T) {
		mockUseCase := &mockAuditUseCase{}

		err := RunSecurityMetrics(ctx, mockUseCase, logger, &bytes.Buffer{}, "yesterday", 10, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid window")
		mockUseCase.AssertNotCalled(t, "GetMetrics")
	})

	t.Run("invalid-top", func(t *testing.T) {
		mockUseCase := &mockAuditUseCase{}

		err := RunSecurityMetrics(ctx, mockUseCase, logger, &bytes.Buffer{}, "24h", 0, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "top must be positive")
	})

	t.Run("metrics-error", func(t *testing.T) {
		mockUseCase := &mockAuditUseCase{}
		mockUseCase.On("GetMetrics", ctx, 24*time.Hour, 10).Return(nil, errors.New("query failed"))

		var out bytes.Buffer
		err := RunSecurityMetrics(ctx, mockUseCase, logger, &out, "24h", 10, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "query failed")
	})
}

func TestRunAcknowledgeAlert(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	alertID := uuid.New()

	t.Run("success", func(t *testing.T) {
		mockUseCase := &mockAuditUseCase{}
		mockUseCase.On("AcknowledgeAlert", ctx, alertID).Return(nil)

		var out bytes.Buffer
		err := RunAcknowledgeAlert(ctx, mockUseCase, logger, &out, alertID.String())

		require.NoError(t, err)
		require.Contains(t, out.String(), "Alert "+alertID.String()+" acknowledged")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("alert-not-found", func(t *testing.T) {
		mockUseCase := &mockAuditUseCase{}
		mockUseCase.On("AcknowledgeAlert", ctx, alertID).Return(auditDomain.ErrAlertNotFound)

		var out bytes.Buffer
		err := RunAcknowledgeAlert(ctx, mockUseCase, logger, &out, alertID.String())

		require.Error(t, err)
		require.ErrorIs(t, err, auditDomain.ErrAlertNotFound)
	})

	t.Run("invalid-alert-id", func(t *testing.T) {
		mockUseCase := &mockAuditUseCase{}

		err := RunAcknowledgeAlert(ctx, mockUseCase, logger, &bytes.Buffer{}, "bad")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid alert-id")
		mockUseCase.AssertNotCalled(t, "AcknowledgeAlert")
	})
}
