package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

// RunRotateMasterKey rotates a principal's master key. Every document data key
// belonging to the principal is rewrapped under the new master key; documents
// whose rewrap fails are picked up by the next rewrap pass.
func RunRotateMasterKey(
	ctx context.Context,
	rotationUseCase rotationUseCase.RotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	principalID string,
) error {
	id, err := parseID("principal-id", principalID)
	if err != nil {
		return err
	}

	logger.Info("rotating master key", slog.String("principal_id", id.String()))

	if err := rotationUseCase.RotateMasterKey(ctx, id); err != nil {
		return fmt.Errorf("failed to rotate master key: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Master key rotated for principal %s\n", id)

	logger.Info("master key rotation completed", slog.String("principal_id", id.String()))
	return nil
}
