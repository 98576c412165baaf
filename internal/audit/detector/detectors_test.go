package detector

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

func TestExcessiveResetDetector(t *testing.T) {
	detector := NewExcessiveResetDetector(DefaultExcessiveResetConfig(), NewMemoryCounterStore())
	ctx := context.Background()
	principalID := uuid.Must(uuid.NewV7())

	reset := func() *auditDomain.SecurityLogEntry {
		return &auditDomain.SecurityLogEntry{
			ID:          uuid.Must(uuid.NewV7()),
			EventType:   auditDomain.EventPasswordReset,
			Severity:    auditDomain.SeverityLow,
			PrincipalID: &principalID,
			IPAddress:   "203.0.113.10",
			Success:     true,
			CreatedAt:   time.Now().UTC(),
		}
	}

	for i := 0; i < 2; i++ {
		alert, err := detector.OnEvent(ctx, reset())
		require.NoError(t, err)
		assert.Nil(t, alert)
	}

	alert, err := detector.OnEvent(ctx, reset())
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, auditDomain.AlertExcessiveReset, alert.AlertType)
	assert.Equal(t, auditDomain.SeverityMedium, alert.Severity)
	require.NotNil(t, alert.PrincipalID)
	assert.Equal(t, principalID, *alert.PrincipalID)

	// Fires once per window.
	alert, err = detector.OnEvent(ctx, reset())
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestExcessiveResetDetector_IgnoresAnonymous(t *testing.T) {
	detector := NewExcessiveResetDetector(ExcessiveResetConfig{Threshold: 1, Window: time.Minute}, NewMemoryCounterStore())

	alert, err := detector.OnEvent(context.Background(), &auditDomain.SecurityLogEntry{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: auditDomain.EventPasswordReset,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestAnomalousAccessDetector(t *testing.T) {
	detector := NewAnomalousAccessDetector(DefaultAnomalousAccessConfig(), NewMemoryCounterStore())
	ctx := context.Background()
	principalID := uuid.Must(uuid.NewV7())

	access := func(region string) *auditDomain.SecurityLogEntry {
		return &auditDomain.SecurityLogEntry{
			ID:          uuid.Must(uuid.NewV7()),
			EventType:   auditDomain.EventAuthAttempt,
			Severity:    auditDomain.SeverityLow,
			PrincipalID: &principalID,
			IPAddress:   "203.0.113.10",
			Region:      region,
			Success:     true,
			CreatedAt:   time.Now().UTC(),
		}
	}

	for _, region := range []string{"us-east", "us-east", "eu-west"} {
		alert, err := detector.OnEvent(ctx, access(region))
		require.NoError(t, err)
		assert.Nil(t, alert)
	}

	alert, err := detector.OnEvent(ctx, access("ap-south"))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, auditDomain.AlertAnomalousAccess, alert.AlertType)

	// A fourth region does not re-fire.
	alert, err = detector.OnEvent(ctx, access("sa-east"))
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestAnomalousAccessDetector_IgnoresMissingRegion(t *testing.T) {
	detector := NewAnomalousAccessDetector(AnomalousAccessConfig{MaxRegions: 0, Window: time.Minute}, NewMemoryCounterStore())
	principalID := uuid.Must(uuid.NewV7())

	alert, err := detector.OnEvent(context.Background(), &auditDomain.SecurityLogEntry{
		ID:          uuid.Must(uuid.NewV7()),
		EventType:   auditDomain.EventAuthAttempt,
		PrincipalID: &principalID,
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestAdminDeniedDetector(t *testing.T) {
	detector := NewAdminDeniedDetector()
	ctx := context.Background()
	principalID := uuid.Must(uuid.NewV7())

	alert, err := detector.OnEvent(ctx, &auditDomain.SecurityLogEntry{
		ID:          uuid.Must(uuid.NewV7()),
		EventType:   auditDomain.EventAdminAccessDenied,
		Severity:    auditDomain.SeverityHigh,
		PrincipalID: &principalID,
		IPAddress:   "203.0.113.10",
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, auditDomain.AlertAdminAccessDenied, alert.AlertType)
	assert.Equal(t, auditDomain.SeverityHigh, alert.Severity)
	assert.Contains(t, alert.Message, principalID.String())

	alert, err = detector.OnEvent(ctx, &auditDomain.SecurityLogEntry{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: auditDomain.EventAuthAttempt,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Nil(t, alert)
}
