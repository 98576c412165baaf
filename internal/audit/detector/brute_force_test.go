package detector

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

func authFailure(ip string, principalID *uuid.UUID) *auditDomain.SecurityLogEntry {
	return &auditDomain.SecurityLogEntry{
		ID:          uuid.Must(uuid.NewV7()),
		EventType:   auditDomain.EventAuthAttempt,
		Severity:    auditDomain.SeverityLow,
		PrincipalID: principalID,
		IPAddress:   ip,
		Success:     false,
		Message:     "invalid credentials",
		CreatedAt:   time.Now().UTC(),
	}
}

func authSuccess(ip string, principalID *uuid.UUID) *auditDomain.SecurityLogEntry {
	entry := authFailure(ip, principalID)
	entry.Success = true
	entry.Message = "authenticated"
	return entry
}

func TestBruteForceDetector_IPThreshold(t *testing.T) {
	detector := NewBruteForceDetector(DefaultBruteForceConfig(), NewMemoryCounterStore())
	ctx := context.Background()
	ip := "203.0.113.10"

	for i := 0; i < 4; i++ {
		alert, err := detector.OnEvent(ctx, authFailure(ip, nil))
		require.NoError(t, err)
		assert.Nil(t, alert, "attempt %d should not alert", i+1)
	}

	alert, err := detector.OnEvent(ctx, authFailure(ip, nil))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, auditDomain.AlertBruteForce, alert.AlertType)
	assert.Equal(t, auditDomain.SeverityHigh, alert.Severity)
	assert.Equal(t, ip, alert.IPAddress)
	assert.Len(t, alert.SourceEntryIDs, 1)

	blocked, err := detector.IPBlocked(ctx, ip)
	require.NoError(t, err)
	assert.True(t, blocked)

	// The crossing already fired; further failures stay quiet.
	alert, err = detector.OnEvent(ctx, authFailure(ip, nil))
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestBruteForceDetector_PrincipalThreshold(t *testing.T) {
	detector := NewBruteForceDetector(DefaultBruteForceConfig(), NewMemoryCounterStore())
	ctx := context.Background()
	principalID := uuid.Must(uuid.NewV7())

	// Rotating source IPs keep every per-IP counter below threshold.
	for i := 0; i < 4; i++ {
		alert, err := detector.OnEvent(ctx, authFailure(fmt.Sprintf("198.51.100.%d", i), &principalID))
		require.NoError(t, err)
		assert.Nil(t, alert)
	}

	alert, err := detector.OnEvent(ctx, authFailure("198.51.100.4", &principalID))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, auditDomain.AlertBruteForce, alert.AlertType)
	require.NotNil(t, alert.PrincipalID)
	assert.Equal(t, principalID, *alert.PrincipalID)
}

func TestBruteForceDetector_CrossingCountsBothDimensions(t *testing.T) {
	detector := NewBruteForceDetector(DefaultBruteForceConfig(), NewMemoryCounterStore())
	ctx := context.Background()
	principalID := uuid.Must(uuid.NewV7())
	ip := "203.0.113.50"

	for i := 0; i < 4; i++ {
		alert, err := detector.OnEvent(ctx, authFailure(ip, &principalID))
		require.NoError(t, err)
		assert.Nil(t, alert)
	}

	// The fifth failure crosses both dimensions at once; the IP alert wins.
	alert, err := detector.OnEvent(ctx, authFailure(ip, &principalID))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, ip, alert.IPAddress)

	// That failure counted against the principal too, so a sixth failure from
	// a fresh IP is past the principal crossing and stays quiet.
	alert, err = detector.OnEvent(ctx, authFailure("198.51.100.50", &principalID))
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestBruteForceDetector_SuccessResetsPrincipalCounter(t *testing.T) {
	detector := NewBruteForceDetector(DefaultBruteForceConfig(), NewMemoryCounterStore())
	ctx := context.Background()
	principalID := uuid.Must(uuid.NewV7())

	for i := 0; i < 4; i++ {
		_, err := detector.OnEvent(ctx, authFailure(fmt.Sprintf("198.51.100.%d", i), &principalID))
		require.NoError(t, err)
	}

	alert, err := detector.OnEvent(ctx, authSuccess("198.51.100.9", &principalID))
	require.NoError(t, err)
	assert.Nil(t, alert)

	// Counter starts over; the next failure is number one, not five.
	alert, err = detector.OnEvent(ctx, authFailure("198.51.100.10", &principalID))
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestBruteForceDetector_SuccessNeverUnblocksIP(t *testing.T) {
	detector := NewBruteForceDetector(DefaultBruteForceConfig(), NewMemoryCounterStore())
	ctx := context.Background()
	principalID := uuid.Must(uuid.NewV7())
	ip := "203.0.113.20"

	for i := 0; i < 5; i++ {
		_, err := detector.OnEvent(ctx, authFailure(ip, nil))
		require.NoError(t, err)
	}
	blocked, err := detector.IPBlocked(ctx, ip)
	require.NoError(t, err)
	require.True(t, blocked)

	_, err = detector.OnEvent(ctx, authSuccess(ip, &principalID))
	require.NoError(t, err)

	blocked, err = detector.IPBlocked(ctx, ip)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestBruteForceDetector_IgnoresOtherEvents(t *testing.T) {
	detector := NewBruteForceDetector(DefaultBruteForceConfig(), NewMemoryCounterStore())

	entry := authFailure("203.0.113.30", nil)
	entry.EventType = auditDomain.EventDocumentAccess

	alert, err := detector.OnEvent(context.Background(), entry)
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestBruteForceDetector_WindowExpiry(t *testing.T) {
	config := BruteForceConfig{Threshold: 2, Window: 10 * time.Millisecond, CoolDown: time.Minute}
	detector := NewBruteForceDetector(config, NewMemoryCounterStore())
	ctx := context.Background()
	ip := "203.0.113.40"

	alert, err := detector.OnEvent(ctx, authFailure(ip, nil))
	require.NoError(t, err)
	assert.Nil(t, alert)

	time.Sleep(20 * time.Millisecond)

	// The earlier failure fell out of the window.
	alert, err = detector.OnEvent(ctx, authFailure(ip, nil))
	require.NoError(t, err)
	assert.Nil(t, alert)
}
