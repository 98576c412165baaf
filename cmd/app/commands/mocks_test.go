package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
	envelopeDomain "github.com/allisson/keycore/internal/envelope/domain"
	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
	rotationUseCase "github.com/allisson/keycore/internal/rotation/usecase"
)

type mockRotationUseCase struct {
	mock.Mock
}

func (m *mockRotationUseCase) RotateMasterKey(ctx context.Context, principalID uuid.UUID) error {
	args := m.Called(ctx, principalID)
	return args.Error(0)
}

func (m *mockRotationUseCase) RotateDocumentKey(ctx context.Context, documentID uuid.UUID) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *mockRotationUseCase) RewrapDocument(ctx context.Context, documentID uuid.UUID) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *mockRotationUseCase) CheckRotationNeeds(ctx context.Context) (*rotationUseCase.RotationNeeds, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationUseCase.RotationNeeds), args.Error(1)
}

func (m *mockRotationUseCase) RotateDue(ctx context.Context) (*rotationUseCase.RotationReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationUseCase.RotationReport), args.Error(1)
}

type mockProvisioningUseCase struct {
	mock.Mock
}

func (m *mockProvisioningUseCase) CreateSettings(
	ctx context.Context,
	principalID uuid.UUID,
) (*keystoreDomain.SecuritySettings, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keystoreDomain.SecuritySettings), args.Error(1)
}

func (m *mockProvisioningUseCase) StoreDocument(
	ctx context.Context,
	principalID, documentID uuid.UUID,
	plaintext []byte,
	alg envelopeDomain.Algorithm,
) (*keystoreDomain.DocumentEncryption, error) {
	args := m.Called(ctx, principalID, documentID, plaintext, alg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keystoreDomain.DocumentEncryption), args.Error(1)
}

func (m *mockProvisioningUseCase) LoadDocument(ctx context.Context, documentID uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type mockReaperUseCase struct {
	mock.Mock
}

func (m *mockReaperUseCase) ReapOnce(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockReaperUseCase) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockAuditUseCase struct {
	mock.Mock
}

func (m *mockAuditUseCase) Log(ctx context.Context, entry *auditDomain.SecurityLogEntry) {
	m.Called(ctx, entry)
}

func (m *mockAuditUseCase) ListEntries(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.SecurityLogEntry, error) {
	args := m.Called(ctx, offset, limit, createdAtFrom, createdAtTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.SecurityLogEntry), args.Error(1)
}

func (m *mockAuditUseCase) ListAlerts(
	ctx context.Context,
	offset, limit int,
	acknowledged *bool,
) ([]*auditDomain.SecurityAlert, error) {
	args := m.Called(ctx, offset, limit, acknowledged)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.SecurityAlert), args.Error(1)
}

func (m *mockAuditUseCase) AcknowledgeAlert(ctx context.Context, alertID uuid.UUID) error {
	args := m.Called(ctx, alertID)
	return args.Error(0)
}

func (m *mockAuditUseCase) GetMetrics(
	ctx context.Context,
	window time.Duration,
	topN int,
) (*auditDomain.SecurityMetrics, error) {
	args := m.Called(ctx, window, topN)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.SecurityMetrics), args.Error(1)
}

func (m *mockAuditUseCase) LogMasterKeyRotation(
	ctx context.Context,
	principalID uuid.UUID,
	oldMasterKeyID, newMasterKeyID string,
	rewrapped, failed int,
) {
	m.Called(ctx, principalID, oldMasterKeyID, newMasterKeyID, rewrapped, failed)
}

func (m *mockAuditUseCase) LogDataKeyRotation(ctx context.Context, principalID, documentID uuid.UUID) {
	m.Called(ctx, principalID, documentID)
}

func (m *mockAuditUseCase) LogRewrapFailure(ctx context.Context, principalID, documentID uuid.UUID, reason string) {
	m.Called(ctx, principalID, documentID, reason)
}

type mockAlertDispatcher struct {
	mock.Mock
}

func (m *mockAlertDispatcher) DispatchPending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
