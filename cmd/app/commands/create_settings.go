package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

// RunCreateSettings provisions a master key and security settings for a new
// principal and prints the resulting settings in text or JSON format.
func RunCreateSettings(
	ctx context.Context,
	provisioningUseCase rotationUseCase.ProvisioningUseCase,
	logger *slog.Logger,
	writer io.Writer,
	principalID, format string,
) error {
	id, err := parseID("principal-id", principalID)
	if err != nil {
		return err
	}

	logger.Info("creating security settings", slog.String("principal_id", id.String()))

	settings, err := provisioningUseCase.CreateSettings(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to create security settings: %w", err)
	}

	if format == "json" {
		result := map[string]interface{}{
			"principal_id":      settings.PrincipalID.String(),
			"master_key_id":     settings.MasterKeyID,
			"last_key_rotation": settings.LastKeyRotation.Format(time.RFC3339),
			"created_at":        settings.CreatedAt.Format(time.RFC3339),
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
	} else {
		_, _ = fmt.Fprintf(writer, "Security settings created for principal %s\n", settings.PrincipalID)
		_, _ = fmt.Fprintf(writer, "Master key ID: %s\n", settings.MasterKeyID)
	}

	logger.Info("security settings created",
		slog.String("principal_id", settings.PrincipalID.String()),
		slog.String("master_key_id", settings.MasterKeyID),
	)

	return nil
}
