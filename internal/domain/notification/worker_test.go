package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestWorker(store *mockStore, strategy Strategy) *Worker {
	return NewWorker(store, newTestService(store, nil, strategy), 3)
}

func TestProcessTask_UnknownIDIsNotRequeued(t *testing.T) {
	store := &mockStore{}
	store.On("GetByID", mock.Anything, "ghost").Return(nil, nil)

	w := newTestWorker(store, &fakeStrategy{channel: ChannelEmail})

	require.NoError(t, w.ProcessTask(context.Background(), "ghost"))
}

func TestProcessTask_NotYetDueIsSkipped(t *testing.T) {
	future := time.Now().UTC().Add(time.Hour)
	n := pendingEmail()
	n.Status = StatusScheduled
	n.ScheduledFor = &future

	store := &mockStore{}
	store.On("GetByID", mock.Anything, n.ID).Return(n, nil)

	email := &fakeStrategy{channel: ChannelEmail}
	w := newTestWorker(store, email)

	require.NoError(t, w.ProcessTask(context.Background(), n.ID))
	assert.Empty(t, email.sent)
	store.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessTask_DueScheduledIsDispatched(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	n := pendingEmail()
	n.Status = StatusScheduled
	n.ScheduledFor = &past

	store := &mockStore{}
	store.On("GetByID", mock.Anything, n.ID).Return(n, nil)
	store.On("Claim", mock.Anything, n.ID, StatusScheduled, StatusPending).Return(true, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	email := &fakeStrategy{channel: ChannelEmail}
	w := newTestWorker(store, email)

	require.NoError(t, w.ProcessTask(context.Background(), n.ID))
	assert.Len(t, email.sent, 1)
	assert.Equal(t, StatusSent, n.Status)
	store.AssertExpectations(t)
}

func TestProcessTask_LostClaimIsSkipped(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	n := pendingEmail()
	n.Status = StatusScheduled
	n.ScheduledFor = &past

	store := &mockStore{}
	store.On("GetByID", mock.Anything, n.ID).Return(n, nil)
	store.On("Claim", mock.Anything, n.ID, StatusScheduled, StatusPending).Return(false, nil)

	email := &fakeStrategy{channel: ChannelEmail}
	w := newTestWorker(store, email)

	require.NoError(t, w.ProcessTask(context.Background(), n.ID))
	assert.Empty(t, email.sent)
}

func TestProcessTask_FailedUnderBudgetIsRetried(t *testing.T) {
	n := pendingEmail()
	n.Status = StatusFailed
	n.Attempts = 2

	store := &mockStore{}
	store.On("GetByID", mock.Anything, n.ID).Return(n, nil)
	store.On("Claim", mock.Anything, n.ID, StatusFailed, StatusRetrying).Return(true, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	email := &fakeStrategy{channel: ChannelEmail}
	w := newTestWorker(store, email)

	require.NoError(t, w.ProcessTask(context.Background(), n.ID))
	assert.Len(t, email.sent, 1)
}

func TestProcessTask_ExhaustedBudgetIsSkipped(t *testing.T) {
	n := pendingEmail()
	n.Status = StatusFailed
	n.Attempts = 3

	store := &mockStore{}
	store.On("GetByID", mock.Anything, n.ID).Return(n, nil)

	email := &fakeStrategy{channel: ChannelEmail}
	w := newTestWorker(store, email)

	require.NoError(t, w.ProcessTask(context.Background(), n.ID))
	assert.Empty(t, email.sent)
	store.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessTask_TerminalStateIsSkipped(t *testing.T) {
	n := pendingEmail()
	n.Status = StatusSent

	store := &mockStore{}
	store.On("GetByID", mock.Anything, n.ID).Return(n, nil)

	email := &fakeStrategy{channel: ChannelEmail}
	w := newTestWorker(store, email)

	require.NoError(t, w.ProcessTask(context.Background(), n.ID))
	assert.Empty(t, email.sent)
}

func TestProcessTask_DeliveryFailureDoesNotBubbleToQueue(t *testing.T) {
	n := pendingEmail()
	n.Status = StatusFailed
	n.Attempts = 0

	store := &mockStore{}
	store.On("GetByID", mock.Anything, n.ID).Return(n, nil)
	store.On("Claim", mock.Anything, n.ID, StatusFailed, StatusRetrying).Return(true, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	email := &fakeStrategy{channel: ChannelEmail, sendErr: assert.AnError}
	w := newTestWorker(store, email)

	// The queue task succeeds even though delivery failed; the state
	// machine owns retries.
	require.NoError(t, w.ProcessTask(context.Background(), n.ID))
	assert.Equal(t, StatusFailed, n.Status)
	assert.Equal(t, 1, n.Attempts)
}
