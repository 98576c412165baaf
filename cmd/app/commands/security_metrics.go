package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	auditUseCase "github.com/allisson/keycore/internal/audit/usecase"
)

// RunSecurityMetrics aggregates the security log over a trailing window and
// prints the totals, severity and event type breakdowns, and the most active
// IPs and principals.
func RunSecurityMetrics(
	ctx context.Context,
	auditUseCase auditUseCase.AuditUseCase,
	logger *slog.Logger,
	writer io.Writer,
	window string,
	topN int,
	format string,
) error {
	duration, err := time.ParseDuration(window)
	if err != nil {
		return fmt.Errorf("invalid window: %q is not a valid duration", window)
	}
	if duration <= 0 {
		return fmt.Errorf("window must be positive, got: %s", window)
	}
	if topN <= 0 {
		return fmt.Errorf("top must be positive, got: %d", topN)
	}

	logger.Info("computing security metrics",
		slog.Duration("window", duration),
		slog.Int("top", topN),
	)

	metrics, err := auditUseCase.GetMetrics(ctx, duration, topN)
	if err != nil {
		return fmt.Errorf("failed to compute security metrics: %w", err)
	}

	if format == "json" {
		bySeverity := make(map[string]int, len(metrics.BySeverity))
		for severity, count := range metrics.BySeverity {
			bySeverity[string(severity)] = count
		}
		byType := make(map[string]int, len(metrics.ByType))
		for eventType, count := range metrics.ByType {
			byType[string(eventType)] = count
		}
		topIPs := make([]map[string]interface{}, 0, len(metrics.TopIPs))
		for _, entry := range metrics.TopIPs {
			topIPs = append(topIPs, map[string]interface{}{
				"ip_address": entry.IPAddress,
				"count":      entry.Count,
			})
		}
		topPrincipals := make([]map[string]interface{}, 0, len(metrics.TopPrincipals))
		for _, entry := range metrics.TopPrincipals {
			topPrincipals = append(topPrincipals, map[string]interface{}{
				"principal_id": entry.PrincipalID.String(),
				"count":        entry.Count,
			})
		}

		result := map[string]interface{}{
			"window":         duration.String(),
			"total_entries":  metrics.TotalEntries,
			"by_severity":    bySeverity,
			"by_type":        byType,
			"top_ips":        topIPs,
			"top_principals": topPrincipals,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
	} else {
		_, _ = fmt.Fprintf(writer, "Security metrics for the last %s\n", duration)
		_, _ = fmt.Fprintf(writer, "Total entries: %d\n", metrics.TotalEntries)
		_, _ = fmt.Fprintln(writer, "By severity:")
		for severity, count := range metrics.BySeverity {
			_, _ = fmt.Fprintf(writer, "  %s: %d\n", severity, count)
		}
		_, _ = fmt.Fprintln(writer, "By event type:")
		for eventType, count := range metrics.ByType {
			_, _ = fmt.Fprintf(writer, "  %s: %d\n", eventType, count)
		}
		_, _ = fmt.Fprintln(writer, "Top IPs:")
		for _, entry := range metrics.TopIPs {
			_, _ = fmt.Fprintf(writer, "  %s: %d\n", entry.IPAddress, entry.Count)
		}
		_, _ = fmt.Fprintln(writer, "Top principals:")
		for _, entry := range metrics.TopPrincipals {
			_, _ = fmt.Fprintf(writer, "  %s: %d\n", entry.PrincipalID, entry.Count)
		}
	}

	logger.Info("security metrics computed", slog.Int("total_entries", metrics.TotalEntries))
	return nil
}
