package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

// RunCheckRotationNeeds scans for master keys and data keys past their policy
// age and for documents left behind by a failed rewrap pass, without rotating
// anything.
func RunCheckRotationNeeds(
	ctx context.Context,
	rotationUseCase rotationUseCase.RotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("checking rotation needs")

	needs, err := rotationUseCase.CheckRotationNeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to check rotation needs: %w", err)
	}

	if format == "json" {
		masterKeys := make([]string, 0, len(needs.MasterKeysDue))
		for _, settings := range needs.MasterKeysDue {
			masterKeys = append(masterKeys, settings.PrincipalID.String())
		}
		dataKeys := make([]string, 0, len(needs.DataKeysDue))
		for _, doc := range needs.DataKeysDue {
			dataKeys = append(dataKeys, doc.DocumentID.String())
		}
		needingRewrap := make([]string, 0, len(needs.NeedingRewrap))
		for _, doc := range needs.NeedingRewrap {
			needingRewrap = append(needingRewrap, doc.DocumentID.String())
		}

		result := map[string]interface{}{
			"master_keys_due": masterKeys,
			"data_keys_due":   dataKeys,
			"needing_rewrap":  needingRewrap,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
	} else {
		_, _ = fmt.Fprintf(writer, "Master keys due for rotation: %d\n", len(needs.MasterKeysDue))
		for _, settings := range needs.MasterKeysDue {
			_, _ = fmt.Fprintf(writer, "  principal %s (last rotation %s)\n",
				settings.PrincipalID, settings.LastKeyRotation.Format("2006-01-02"))
		}
		_, _ = fmt.Fprintf(writer, "Data keys due for rotation: %d\n", len(needs.DataKeysDue))
		for _, doc := range needs.DataKeysDue {
			_, _ = fmt.Fprintf(writer, "  document %s (last rotation %s)\n",
				doc.DocumentID, doc.LastRotation.Format("2006-01-02"))
		}
		_, _ = fmt.Fprintf(writer, "Documents needing rewrap: %d\n", len(needs.NeedingRewrap))
		for _, doc := range needs.NeedingRewrap {
			_, _ = fmt.Fprintf(writer, "  document %s\n", doc.DocumentID)
		}
	}

	logger.Info("rotation needs check completed",
		slog.Int("master_keys_due", len(needs.MasterKeysDue)),
		slog.Int("data_keys_due", len(needs.DataKeysDue)),
		slog.Int("needing_rewrap", len(needs.NeedingRewrap)),
	)

	return nil
}
