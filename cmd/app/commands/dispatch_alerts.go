package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// AlertDispatcher drains pending security alerts to the configured publishers.
type AlertDispatcher interface {
	DispatchPending(ctx context.Context) (int, error)
}

// RunDispatchAlerts delivers one batch of pending security alerts. Alerts whose
// delivery fails stay pending and are retried on the next run until the attempt
// limit.
func RunDispatchAlerts(
	ctx context.Context,
	dispatcher AlertDispatcher,
	logger *slog.Logger,
	writer io.Writer,
) error {
	logger.Info("dispatching pending alerts")

	dispatched, err := dispatcher.DispatchPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to dispatch alerts: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Dispatched %d alert(s)\n", dispatched)

	logger.Info("alert dispatch completed", slog.Int("dispatched", dispatched))
	return nil
}
