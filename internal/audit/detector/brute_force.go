package detector

import (
	"context"
	"fmt"
	"time"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

// BruteForceConfig tunes the brute-force detector.
type BruteForceConfig struct {
	Threshold int
	Window    time.Duration
	CoolDown  time.Duration
}

// DefaultBruteForceConfig returns the default brute-force settings:
// 5 failures within 15 minutes, 30 minute IP block.
func DefaultBruteForceConfig() BruteForceConfig {
	return BruteForceConfig{
		Threshold: 5,
		Window:    15 * time.Minute,
		CoolDown:  30 * time.Minute,
	}
}

// BruteForceDetector counts failed auth attempts per source IP and per
// principal. Crossing the threshold on either dimension raises exactly one
// alert per window; the IP crossing additionally blocks the IP for the
// cool-down period. A successful attempt resets the principal counter but
// never lifts an IP block early.
type BruteForceDetector struct {
	config BruteForceConfig
	store  CounterStore
}

// NewBruteForceDetector creates a new brute-force detector.
func NewBruteForceDetector(config BruteForceConfig, store CounterStore) *BruteForceDetector {
	return &BruteForceDetector{config: config, store: store}
}

func (d *BruteForceDetector) OnEvent(
	ctx context.Context,
	entry *auditDomain.SecurityLogEntry,
) (*auditDomain.SecurityAlert, error) {
	if entry.EventType != auditDomain.EventAuthAttempt {
		return nil, nil
	}

	if entry.Success {
		if entry.PrincipalID != nil {
			if err := d.store.Reset(ctx, principalFailureKey(entry.PrincipalID.String())); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	// Both dimensions count every failure, even the one that raises an alert,
	// so the counters stay consistent when an event crosses both thresholds.
	var ipCount, principalCount int64

	if entry.IPAddress != "" {
		count, err := d.store.Increment(ctx, ipFailureKey(entry.IPAddress), d.config.Window)
		if err != nil {
			return nil, err
		}
		ipCount = count
	}

	if entry.PrincipalID != nil {
		count, err := d.store.Increment(ctx, principalFailureKey(entry.PrincipalID.String()), d.config.Window)
		if err != nil {
			return nil, err
		}
		principalCount = count
	}

	// == not >= keeps the alert to one per window crossing.
	if ipCount == int64(d.config.Threshold) {
		if err := d.store.SetFlag(ctx, ipBlockKey(entry.IPAddress), d.config.CoolDown); err != nil {
			return nil, err
		}
		message := fmt.Sprintf("%d failed auth attempts from %s, ip blocked for %s",
			d.config.Threshold, entry.IPAddress, d.config.CoolDown)
		return newAlert(auditDomain.AlertBruteForce, auditDomain.SeverityHigh, entry, message), nil
	}

	if principalCount == int64(d.config.Threshold) {
		message := fmt.Sprintf("%d failed auth attempts against principal %s",
			d.config.Threshold, entry.PrincipalID)
		return newAlert(auditDomain.AlertBruteForce, auditDomain.SeverityHigh, entry, message), nil
	}

	return nil, nil
}

// IPBlocked reports whether the given IP is inside a brute-force cool-down.
func (d *BruteForceDetector) IPBlocked(ctx context.Context, ip string) (bool, error) {
	return d.store.HasFlag(ctx, ipBlockKey(ip))
}

func ipFailureKey(ip string) string        { return "bf:ip:" + ip }
func ipBlockKey(ip string) string          { return "bf:block:" + ip }
func principalFailureKey(id string) string { return "bf:principal:" + id }
