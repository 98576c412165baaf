package detector

import (
	"context"
	"fmt"
	"time"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

// ExcessiveResetConfig tunes the excessive password reset detector.
type ExcessiveResetConfig struct {
	Threshold int
	Window    time.Duration
}

// DefaultExcessiveResetConfig returns the default reset settings:
// 3 resets within an hour.
func DefaultExcessiveResetConfig() ExcessiveResetConfig {
	return ExcessiveResetConfig{
		Threshold: 3,
		Window:    time.Hour,
	}
}

// ExcessiveResetDetector counts password reset requests per principal and
// raises one alert per window when the threshold is crossed.
type ExcessiveResetDetector struct {
	config ExcessiveResetConfig
	store  CounterStore
}

// NewExcessiveResetDetector creates a new excessive reset detector.
func NewExcessiveResetDetector(config ExcessiveResetConfig, store CounterStore) *ExcessiveResetDetector {
	return &ExcessiveResetDetector{config: config, store: store}
}

func (d *ExcessiveResetDetector) OnEvent(
	ctx context.Context,
	entry *auditDomain.SecurityLogEntry,
) (*auditDomain.SecurityAlert, error) {
	if entry.EventType != auditDomain.EventPasswordReset || entry.PrincipalID == nil {
		return nil, nil
	}

	count, err := d.store.Increment(ctx, "reset:principal:"+entry.PrincipalID.String(), d.config.Window)
	if err != nil {
		return nil, err
	}
	if count != int64(d.config.Threshold) {
		return nil, nil
	}

	message := fmt.Sprintf("%d password resets for principal %s within %s",
		d.config.Threshold, entry.PrincipalID, d.config.Window)
	return newAlert(auditDomain.AlertExcessiveReset, auditDomain.SeverityMedium, entry, message), nil
}
