package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
	"github.com/allisson/keycore/internal/alert/publisher"
	"github.com/allisson/keycore/internal/testutil"
)

// recordingPublisher captures published alerts and can be told to fail.
type recordingPublisher struct {
	mu     sync.Mutex
	name   string
	alerts []*auditDomain.SecurityAlert
	fail   error
}

func (r *recordingPublisher) Name() string { return r.name }

func (r *recordingPublisher) Publish(_ context.Context, alert *auditDomain.SecurityAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail != nil {
		return r.fail
	}
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *recordingPublisher) published() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

func seedAlert(t *testing.T, repo *testutil.FakeAlertRepository) *auditDomain.SecurityAlert {
	t.Helper()

	alert := &auditDomain.SecurityAlert{
		ID:             uuid.Must(uuid.NewV7()),
		AlertType:      auditDomain.AlertBruteForce,
		Severity:       auditDomain.SeverityHigh,
		IPAddress:      "203.0.113.10",
		Message:        "5 failed auth attempts",
		SourceEntryIDs: []uuid.UUID{uuid.Must(uuid.NewV7())},
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), alert))
	return alert
}

func newTestDispatcher(repo *testutil.FakeAlertRepository, publishers ...publisher.Publisher) *DispatcherUseCase {
	config := Config{Interval: 10 * time.Millisecond, BatchSize: 10, MaxAttempts: 3}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(config, repo, publishers, logger)
}

func TestDispatcher_DispatchPending(t *testing.T) {
	repo := testutil.NewFakeAlertRepository()
	pubsubChannel := &recordingPublisher{name: "pubsub"}
	webhookChannel := &recordingPublisher{name: "webhook"}
	dispatcher := newTestDispatcher(repo, pubsubChannel, webhookChannel)

	alert := seedAlert(t, repo)

	dispatched, err := dispatcher.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, dispatched)
	assert.Equal(t, 1, pubsubChannel.published())
	assert.Equal(t, 1, webhookChannel.published())

	stored, err := repo.Get(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.DispatchAttempts)
	require.NotNil(t, stored.DispatchedAt)
	assert.Nil(t, stored.LastDispatchError)

	// Dispatched alerts are not picked again.
	dispatched, err = dispatcher.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, dispatched)
	assert.Equal(t, 1, pubsubChannel.published())
}

func TestDispatcher_PartialFailureRetriesWhole(t *testing.T) {
	repo := testutil.NewFakeAlertRepository()
	healthy := &recordingPublisher{name: "pubsub"}
	broken := &recordingPublisher{name: "webhook", fail: errors.New("endpoint unavailable")}
	dispatcher := newTestDispatcher(repo, healthy, broken)
	ctx := context.Background()

	alert := seedAlert(t, repo)

	dispatched, err := dispatcher.DispatchPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, dispatched)

	stored, err := repo.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.DispatchAttempts)
	assert.Nil(t, stored.DispatchedAt)
	require.NotNil(t, stored.LastDispatchError)
	assert.Contains(t, *stored.LastDispatchError, "webhook")
	assert.Contains(t, *stored.LastDispatchError, "endpoint unavailable")

	// The channel recovers; the next pass delivers the whole alert again.
	broken.mu.Lock()
	broken.fail = nil
	broken.mu.Unlock()

	dispatched, err = dispatcher.DispatchPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dispatched)

	stored, err = repo.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.DispatchAttempts)
	require.NotNil(t, stored.DispatchedAt)
	assert.Nil(t, stored.LastDispatchError)
}

func TestDispatcher_BoundedRetries(t *testing.T) {
	repo := testutil.NewFakeAlertRepository()
	broken := &recordingPublisher{name: "webhook", fail: errors.New("endpoint unavailable")}
	dispatcher := newTestDispatcher(repo, broken)
	ctx := context.Background()

	alert := seedAlert(t, repo)

	for i := 0; i < 3; i++ {
		dispatched, err := dispatcher.DispatchPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, dispatched)
	}

	stored, err := repo.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.DispatchAttempts)

	// Attempt limit reached; the alert is no longer picked up.
	dispatched, err := dispatcher.DispatchPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, dispatched)

	stored, err = repo.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.DispatchAttempts)
}

func TestDispatcher_EmptyBatch(t *testing.T) {
	dispatcher := newTestDispatcher(testutil.NewFakeAlertRepository(), &recordingPublisher{name: "pubsub"})

	dispatched, err := dispatcher.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dispatched)
}

func TestDispatcher_Start(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := testutil.NewFakeAlertRepository()
	channel := &recordingPublisher{name: "pubsub"}
	dispatcher := newTestDispatcher(repo, channel)

	seedAlert(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- dispatcher.Start(ctx)
	}()

	// Let a few ticks pass, then stop the loop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}

	assert.Equal(t, 1, channel.published())
}
