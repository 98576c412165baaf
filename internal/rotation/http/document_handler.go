package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
	auditUseCase "github.com/allisson/keycore/internal/audit/usecase"
	"github.com/allisson/keycore/internal/httputil"
	"github.com/allisson/keycore/internal/rotation/http/dto"
	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
	customValidation "github.com/allisson/keycore/internal/validation"
)

// DocumentHandler handles HTTP requests for principal provisioning and
// encrypted document storage. Document access is recorded on the security
// log so the anomaly detectors see it.
type DocumentHandler struct {
	provisioningUseCase rotationUseCase.ProvisioningUseCase
	auditUseCase        auditUseCase.AuditUseCase
	logger              *slog.Logger
}

// NewDocumentHandler creates a new document handler with required dependencies.
func NewDocumentHandler(
	provisioningUC rotationUseCase.ProvisioningUseCase,
	auditUC auditUseCase.AuditUseCase,
	logger *slog.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		provisioningUseCase: provisioningUC,
		auditUseCase:        auditUC,
		logger:              logger,
	}
}

// CreateSettingsHandler provisions a master key and security settings for a
// new principal.
// POST /v1/admin/principals/:principal_id/settings
// Returns 201 Created, or 409 Conflict if the principal already has settings.
func (h *DocumentHandler) CreateSettingsHandler(c *gin.Context) {
	principalID, err := parseUUIDParam(c, "principal_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	settings, err := h.provisioningUseCase.CreateSettings(c.Request.Context(), principalID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapSecuritySettingsToResponse(settings))
}

// StoreDocumentHandler encrypts and stores a document payload under a fresh
// data key.
// PUT /v1/documents/:document_id
// Returns 201 Created with the encryption record metadata (never key material).
func (h *DocumentHandler) StoreDocumentHandler(c *gin.Context) {
	documentID, err := parseUUIDParam(c, "document_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.StoreDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	principalID := uuid.MustParse(req.PrincipalID)
	plaintext, err := base64.StdEncoding.DecodeString(req.Value)
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 value: %w", err), h.logger)
		return
	}

	record, err := h.provisioningUseCase.StoreDocument(
		c.Request.Context(),
		principalID,
		documentID,
		plaintext,
		req.EffectiveAlgorithm(),
	)
	h.logDocumentAccess(c, &principalID, documentID, "store", err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapDocumentEncryptionToResponse(record))
}

// LoadDocumentHandler decrypts and returns a stored document payload.
// GET /v1/documents/:document_id
// Returns 200 OK with the payload base64-encoded.
func (h *DocumentHandler) LoadDocumentHandler(c *gin.Context) {
	documentID, err := parseUUIDParam(c, "document_id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	plaintext, err := h.provisioningUseCase.LoadDocument(c.Request.Context(), documentID)
	h.logDocumentAccess(c, nil, documentID, "load", err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDocumentToResponse(documentID, plaintext))
}

// logDocumentAccess records a document access on the security log. The region
// comes from the X-Region header when an edge proxy sets one.
func (h *DocumentHandler) logDocumentAccess(
	c *gin.Context,
	principalID *uuid.UUID,
	documentID uuid.UUID,
	operation string,
	accessErr error,
) {
	entry := &auditDomain.SecurityLogEntry{
		EventType:   auditDomain.EventDocumentAccess,
		Severity:    auditDomain.SeverityLow,
		PrincipalID: principalID,
		IPAddress:   c.ClientIP(),
		Region:      c.GetHeader("X-Region"),
		Success:     accessErr == nil,
		Message:     "document " + operation,
		Metadata: map[string]any{
			"document_id": documentID.String(),
			"operation":   operation,
		},
	}
	h.auditUseCase.Log(c.Request.Context(), entry)
}
