// Package http provides HTTP handlers for the security log, alert
// management, and security metrics.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/keycore/internal/audit/http/dto"
	auditUseCase "github.com/allisson/keycore/internal/audit/usecase"
	"github.com/allisson/keycore/internal/httputil"
)

// Metrics query defaults. The window caps at 30 days to bound the scan.
const (
	defaultMetricsWindow = 24 * time.Hour
	maxMetricsWindow     = 30 * 24 * time.Hour
	defaultMetricsTopN   = 10
	maxMetricsTopN       = 100
)

// SecurityHandler handles HTTP requests for security log and alert administration.
type SecurityHandler struct {
	auditUseCase auditUseCase.AuditUseCase
	logger       *slog.Logger
}

// NewSecurityHandler creates a new security handler with required dependencies.
func NewSecurityHandler(
	auditUC auditUseCase.AuditUseCase,
	logger *slog.Logger,
) *SecurityHandler {
	return &SecurityHandler{
		auditUseCase: auditUC,
		logger:       logger,
	}
}

// ListEntriesHandler retrieves security log entries with pagination and
// optional time-based filtering.
// GET /v1/admin/security-log?offset=0&limit=50&created_at_from=2026-02-01T00:00:00Z&created_at_to=2026-02-14T23:59:59Z
// Returns 200 OK with entries ordered newest first. Both time boundaries are
// inclusive and accepted in RFC3339 format.
func (h *SecurityHandler) ListEntriesHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	createdAtFrom, err := parseTimeQuery(c, "created_at_from")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	createdAtTo, err := parseTimeQuery(c, "created_at_to")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if createdAtFrom != nil && createdAtTo != nil && createdAtFrom.After(*createdAtTo) {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("created_at_from must be before or equal to created_at_to"),
			h.logger)
		return
	}

	entries, err := h.auditUseCase.ListEntries(c.Request.Context(), offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecurityLogEntriesToListResponse(entries))
}

// ListAlertsHandler retrieves security alerts with pagination and an optional
// acknowledgement filter.
// GET /v1/admin/alerts?offset=0&limit=50&acknowledged=false
// Returns 200 OK with alerts ordered newest first.
func (h *SecurityHandler) ListAlertsHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var acknowledged *bool
	if ackStr := c.Query("acknowledged"); ackStr != "" {
		parsed, parseErr := strconv.ParseBool(ackStr)
		if parseErr != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid acknowledged parameter: must be true or false"),
				h.logger)
			return
		}
		acknowledged = &parsed
	}

	alerts, err := h.auditUseCase.ListAlerts(c.Request.Context(), offset, limit, acknowledged)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecurityAlertsToListResponse(alerts))
}

// AcknowledgeAlertHandler marks an alert as handled.
// POST /v1/admin/alerts/:alert_id/acknowledge
// Returns 200 OK. Acknowledging an already acknowledged alert is a no-op
// success; an unknown alert returns 404 Not Found.
func (h *SecurityHandler) AcknowledgeAlertHandler(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("alert_id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid alert_id: must be a valid UUID"),
			h.logger)
		return
	}

	if err := h.auditUseCase.AcknowledgeAlert(c.Request.Context(), alertID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
}

// GetMetricsHandler aggregates the security log over a trailing window.
// GET /v1/admin/security-metrics?window=24h&top=10
// Returns 200 OK with totals, severity and event-type breakdowns, and the
// top source IPs and principals.
func (h *SecurityHandler) GetMetricsHandler(c *gin.Context) {
	window := defaultMetricsWindow
	if windowStr := c.Query("window"); windowStr != "" {
		parsed, parseErr := time.ParseDuration(windowStr)
		if parseErr != nil || parsed <= 0 {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid window parameter: must be a positive duration (e.g., 24h)"),
				h.logger)
			return
		}
		if parsed > maxMetricsWindow {
			parsed = maxMetricsWindow
		}
		window = parsed
	}

	topN := defaultMetricsTopN
	if topStr := c.Query("top"); topStr != "" {
		parsed, parseErr := strconv.Atoi(topStr)
		if parseErr != nil || parsed <= 0 {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid top parameter: must be a positive integer"),
				h.logger)
			return
		}
		if parsed > maxMetricsTopN {
			parsed = maxMetricsTopN
		}
		topN = parsed
	}

	metrics, err := h.auditUseCase.GetMetrics(c.Request.Context(), window, topN)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecurityMetricsToResponse(metrics))
}

// parseTimeQuery parses an optional RFC3339 query parameter, normalized to UTC.
func parseTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format: must be RFC3339 (e.g., 2026-02-01T00:00:00Z)", name)
	}
	utcTime := parsed.UTC()
	return &utcTime, nil
}
