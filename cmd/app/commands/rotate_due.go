package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

// RunRotateDue executes every rotation the policy scan finds due. Per-item
// failures are counted in the report instead of aborting the pass.
func RunRotateDue(
	ctx context.Context,
	rotationUseCase rotationUseCase.RotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("rotating due keys")

	report, err := rotationUseCase.RotateDue(ctx)
	if err != nil {
		return fmt.Errorf("failed to rotate due keys: %w", err)
	}

	if format == "json" {
		result := map[string]interface{}{
			"master_keys_rotated": report.MasterKeysRotated,
			"data_keys_rotated":   report.DataKeysRotated,
			"documents_rewrapped": report.DocumentsRewrapped,
			"failures":            report.Failures,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
	} else {
		_, _ = fmt.Fprintf(writer, "Master keys rotated: %d\n", report.MasterKeysRotated)
		_, _ = fmt.Fprintf(writer, "Data keys rotated: %d\n", report.DataKeysRotated)
		_, _ = fmt.Fprintf(writer, "Documents rewrapped: %d\n", report.DocumentsRewrapped)
		_, _ = fmt.Fprintf(writer, "Failures: %d\n", report.Failures)
	}

	logger.Info("rotation pass completed",
		slog.Int("master_keys_rotated", report.MasterKeysRotated),
		slog.Int("data_keys_rotated", report.DataKeysRotated),
		slog.Int("documents_rewrapped", report.DocumentsRewrapped),
		slog.Int("failures", report.Failures),
	)

	return nil
}
