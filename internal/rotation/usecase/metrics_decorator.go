package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/keycore/internal/metrics"
)

// rotationUseCaseWithMetrics decorates RotationUseCase with metrics instrumentation.
type rotationUseCaseWithMetrics struct {
	next    RotationUseCase
	metrics metrics.BusinessMetrics
}

// NewRotationUseCaseWithMetrics wraps a RotationUseCase with metrics recording.
func NewRotationUseCaseWithMetrics(useCase RotationUseCase, m metrics.BusinessMetrics) RotationUseCase {
	return &rotationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (r *rotationUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.RecordOperation(ctx, "rotation", operation, status)
	r.metrics.RecordDuration(ctx, "rotation", operation, time.Since(start), status)
}

// RotateMasterKey records metrics for master key rotations.
func (r *rotationUseCaseWithMetrics) RotateMasterKey(ctx context.Context, principalID uuid.UUID) error {
	start := time.Now()
	err := r.next.RotateMasterKey(ctx, principalID)
	r.record(ctx, "rotate_master_key", start, err)
	return err
}

// RotateDocumentKey records metrics for document data key rotations.
func (r *rotationUseCaseWithMetrics) RotateDocumentKey(ctx context.Context, documentID uuid.UUID) error {
	start := time.Now()
	err := r.next.RotateDocumentKey(ctx, documentID)
	r.record(ctx, "rotate_document_key", start, err)
	return err
}

// RewrapDocument records metrics for rewrap catch-ups.
func (r *rotationUseCaseWithMetrics) RewrapDocument(ctx context.Context, documentID uuid.UUID) error {
	start := time.Now()
	err := r.next.RewrapDocument(ctx, documentID)
	r.record(ctx, "rewrap_document", start, err)
	return err
}

// CheckRotationNeeds records metrics for rotation need scans.
func (r *rotationUseCaseWithMetrics) CheckRotationNeeds(ctx context.Context) (*RotationNeeds, error) {
	start := time.Now()
	needs, err := r.next.CheckRotationNeeds(ctx)
	r.record(ctx, "check_rotation_needs", start, err)
	return needs, err
}

// RotateDue records metrics for scheduled rotation passes.
func (r *rotationUseCaseWithMetrics) RotateDue(ctx context.Context) (*RotationReport, error) {
	start := time.Now()
	report, err := r.next.RotateDue(ctx)
	r.record(ctx, "rotate_due", start, err)
	return report, err
}
