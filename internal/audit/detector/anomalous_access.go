package detector

import (
	"context"
	"fmt"
	"time"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
)

// AnomalousAccessConfig tunes the anomalous access detector.
type AnomalousAccessConfig struct {
	MaxRegions int
	Window     time.Duration
}

// DefaultAnomalousAccessConfig returns the default anomalous access settings:
// more than 2 distinct regions within 24 hours.
func DefaultAnomalousAccessConfig() AnomalousAccessConfig {
	return AnomalousAccessConfig{
		MaxRegions: 2,
		Window:     24 * time.Hour,
	}
}

// AnomalousAccessDetector tracks the distinct coarse geographic regions a
// principal has been seen from. One alert fires when the count first exceeds
// MaxRegions within the window.
type AnomalousAccessDetector struct {
	config AnomalousAccessConfig
	store  CounterStore
}

// NewAnomalousAccessDetector creates a new anomalous access detector.
func NewAnomalousAccessDetector(config AnomalousAccessConfig, store CounterStore) *AnomalousAccessDetector {
	return &AnomalousAccessDetector{config: config, store: store}
}

func (d *AnomalousAccessDetector) OnEvent(
	ctx context.Context,
	entry *auditDomain.SecurityLogEntry,
) (*auditDomain.SecurityAlert, error) {
	if entry.PrincipalID == nil || entry.Region == "" {
		return nil, nil
	}
	switch entry.EventType {
	case auditDomain.EventAuthAttempt, auditDomain.EventDocumentAccess:
	default:
		return nil, nil
	}

	count, err := d.store.AddDistinct(
		ctx,
		"regions:principal:"+entry.PrincipalID.String(),
		entry.Region,
		d.config.Window,
	)
	if err != nil {
		return nil, err
	}
	// Fires only on the first region past the limit.
	if count != int64(d.config.MaxRegions)+1 {
		return nil, nil
	}

	message := fmt.Sprintf("principal %s seen from %d distinct regions within %s",
		entry.PrincipalID, count, d.config.Window)
	return newAlert(auditDomain.AlertAnomalousAccess, auditDomain.SeverityMedium, entry, message), nil
}
