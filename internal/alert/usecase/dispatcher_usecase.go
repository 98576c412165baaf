// Package usecase implements the alert dispatch loop: pending security alerts
// are picked from the store and fanned out to the configured publishers with
// bounded retries.
package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
	"github.com/allisson/keycore/internal/alert/publisher"
	apperrors "github.com/allisson/keycore/internal/errors"
)

// Config holds dispatcher configuration.
type Config struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// AlertStore is the slice of the alert repository the dispatcher needs.
type AlertStore interface {
	ListPending(ctx context.Context, limit, maxAttempts int) ([]*auditDomain.SecurityAlert, error)
	UpdateDispatchState(ctx context.Context, alert *auditDomain.SecurityAlert) error
}

// Dispatcher defines the alert dispatch operations.
type Dispatcher interface {
	// Start runs the dispatch loop until ctx is cancelled.
	Start(ctx context.Context) error

	// DispatchPending delivers one batch of pending alerts and returns how
	// many were fully delivered.
	DispatchPending(ctx context.Context) (int, error)
}

// DispatcherUseCase implements Dispatcher.
type DispatcherUseCase struct {
	config     Config
	alertStore AlertStore
	publishers []publisher.Publisher
	logger     *slog.Logger
}

// NewDispatcher creates a new alert dispatcher.
func NewDispatcher(
	config Config,
	alertStore AlertStore,
	publishers []publisher.Publisher,
	logger *slog.Logger,
) *DispatcherUseCase {
	return &DispatcherUseCase{
		config:     config,
		alertStore: alertStore,
		publishers: publishers,
		logger:     logger,
	}
}

// Start runs the dispatch loop until ctx is cancelled.
func (d *DispatcherUseCase) Start(ctx context.Context) error {
	d.logger.Info("starting alert dispatcher",
		slog.Duration("interval", d.config.Interval),
		slog.Int("batch_size", d.config.BatchSize),
		slog.Int("max_attempts", d.config.MaxAttempts),
	)

	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("stopping alert dispatcher")
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil {
				d.logger.Error("failed to dispatch alerts", slog.Any("error", err))
			}
		}
	}
}

// DispatchPending delivers one batch of pending alerts. An alert counts as
// dispatched only when every publisher accepted it; partial deliveries are
// retried whole on the next pass until the attempt limit.
func (d *DispatcherUseCase) DispatchPending(ctx context.Context) (int, error) {
	alerts, err := d.alertStore.ListPending(ctx, d.config.BatchSize, d.config.MaxAttempts)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to list pending alerts")
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	dispatched := 0
	for _, alert := range alerts {
		alert.DispatchAttempts++

		if failures := d.publish(ctx, alert); len(failures) > 0 {
			message := strings.Join(failures, "; ")
			alert.LastDispatchError = &message
			d.logger.Error("alert dispatch failed",
				slog.String("alert_id", alert.ID.String()),
				slog.Int("attempts", alert.DispatchAttempts),
				slog.String("error", message),
			)
		} else {
			now := time.Now().UTC()
			alert.DispatchedAt = &now
			alert.LastDispatchError = nil
			dispatched++
		}

		if err := d.alertStore.UpdateDispatchState(ctx, alert); err != nil {
			return dispatched, apperrors.Wrap(err, "failed to update dispatch state")
		}
	}
	return dispatched, nil
}

// publish fans the alert out to every publisher and collects failures.
func (d *DispatcherUseCase) publish(ctx context.Context, alert *auditDomain.SecurityAlert) []string {
	var failures []string
	for _, p := range d.publishers {
		if err := p.Publish(ctx, alert); err != nil {
			failures = append(failures, p.Name()+": "+err.Error())
		}
	}
	return failures
}
