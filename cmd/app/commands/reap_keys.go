package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

// RunReapKeys runs a single reaper pass, deleting every retired key whose
// deletion grace period has elapsed and that no document or principal still
// references.
func RunReapKeys(
	ctx context.Context,
	reaperUseCase rotationUseCase.ReaperUseCase,
	logger *slog.Logger,
	writer io.Writer,
) error {
	logger.Info("reaping retired keys")

	reaped, err := reaperUseCase.ReapOnce(ctx)
	if err != nil {
		return fmt.Errorf("failed to reap retired keys: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Deleted %d retired key(s)\n", reaped)

	logger.Info("reaper pass completed", slog.Int("reaped", reaped))
	return nil
}
