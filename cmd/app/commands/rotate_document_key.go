package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

// RunRotateDocumentKey rotates a document's data key, re-encrypting the payload
// under a fresh key and blob id.
func RunRotateDocumentKey(
	ctx context.Context,
	rotationUseCase rotationUseCase.RotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	documentID string,
) error {
	id, err := parseID("document-id", documentID)
	if err != nil {
		return err
	}

	logger.Info("rotating document data key", slog.String("document_id", id.String()))

	if err := rotationUseCase.RotateDocumentKey(ctx, id); err != nil {
		return fmt.Errorf("failed to rotate document data key: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Data key rotated for document %s\n", id)

	logger.Info("document data key rotation completed", slog.String("document_id", id.String()))
	return nil
}
