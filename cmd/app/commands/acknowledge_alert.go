package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	auditUseCase "github.com/allisson/keycore/internal/audit/usecase"
)

// RunAcknowledgeAlert marks a security alert as handled. Acknowledging an
// already acknowledged alert succeeds without changes.
func RunAcknowledgeAlert(
	ctx context.Context,
	auditUseCase auditUseCase.AuditUseCase,
	logger *slog.Logger,
	writer io.Writer,
	alertID string,
) error {
	id, err := parseID("alert-id", alertID)
	if err != nil {
		return err
	}

	if err := auditUseCase.AcknowledgeAlert(ctx, id); err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Alert %s acknowledged\n", id)

	logger.Info("alert acknowledged", slog.String("alert_id", id.String()))
	return nil
}
