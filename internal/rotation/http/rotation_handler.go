// Package http provides HTTP handlers for key rotation and document
// provisioning operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/keycore/internal/httputil"
	"github.com/allisson/keycore/internal/rotation/http/dto"
	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

// RotationHandler handles HTTP requests for key rotation administration.
// Rotation outcomes are recorded on the security log by the use case layer.
type RotationHandler struct {
	rotationUseCase rotationUseCase.RotationUseCase
	logger          *slog.Logger
}

// NewRotationHandler creates a new rotation handler with required dependencies.
func NewRotationHandler(
	rotationUC rotationUseCase.RotationUseCase,
	logger *slog.Logger,
) *RotationHandler {
	return &RotationHandler{
		rotationUseCase: rotationUC,
		logger:          logger,
	}
}

// RotateMasterKeyHandler rotates a principal's master key.
// POST /v1/admin/principals/:principal_id/rotate-master-key
// Returns 202 Accepted: the swap is durable but per-document rewraps may
// still be pending for the next pass.
func (h *RotationHandler) RotateMasterKeyHandler(c *gin.Context) {
	principalID, err := parseUUIDParam(c, "principal_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.rotationUseCase.RotateMasterKey(c.Request.Context(), principalID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "rotated"})
}

// RotateDocumentKeyHandler rotates a document's data key.
// POST /v1/admin/documents/:document_id/rotate-key
// Returns 202 Accepted.
func (h *RotationHandler) RotateDocumentKeyHandler(c *gin.Context) {
	documentID, err := parseUUIDParam(c, "document_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.rotationUseCase.RotateDocumentKey(c.Request.Context(), documentID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "rotated"})
}

// RewrapDocumentHandler moves a document's wrapped data key under its
// principal's active master key.
// POST /v1/admin/documents/:document_id/rewrap
// Returns 202 Accepted whether the rewrap ran or the wrapping was already current.
func (h *RotationHandler) RewrapDocumentHandler(c *gin.Context) {
	documentID, err := parseUUIDParam(c, "document_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.rotationUseCase.RewrapDocument(c.Request.Context(), documentID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "rewrapped"})
}

// CheckRotationNeedsHandler scans for keys past their policy age.
// GET /v1/admin/rotation-needs
// Returns 200 OK with the due master keys, data keys, and documents
// pending rewrap.
func (h *RotationHandler) CheckRotationNeedsHandler(c *gin.Context) {
	needs, err := h.rotationUseCase.CheckRotationNeeds(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotationNeedsToResponse(needs))
}

// RotateDueHandler runs a full rotation pass over everything the policy
// scan finds due.
// POST /v1/admin/rotate-due
// Returns 200 OK with the pass report. Per-item failures are counted in the
// report, not surfaced as an HTTP error.
func (h *RotationHandler) RotateDueHandler(c *gin.Context) {
	report, err := h.rotationUseCase.RotateDue(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotationReportToResponse(report))
}

// parseUUIDParam extracts and parses a UUID path parameter.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: must be a valid UUID", name)
	}
	return id, nil
}
