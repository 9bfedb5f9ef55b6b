package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
	"github.com/FrancoVillarLaz/notifications-service/internal/domain/template"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Save(ctx context.Context, n *Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockStore) GetByID(ctx context.Context, id string) (*Notification, error) {
	args := m.Called(ctx, id)
	if n, _ := args.Get(0).(*Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) List(ctx context.Context, filter ListFilter) ([]*Notification, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*Notification), args.Int(1), args.Error(2)
}

func (m *mockStore) ListScheduledDue(ctx context.Context, now time.Time, limit int) ([]*Notification, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]*Notification), args.Error(1)
}

func (m *mockStore) ListFailedUnderAttempts(ctx context.Context, maxAttempts, limit int) ([]*Notification, error) {
	args := m.Called(ctx, maxAttempts, limit)
	return args.Get(0).([]*Notification), args.Error(1)
}

func (m *mockStore) Claim(ctx context.Context, id string, from, to Status) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

type mockRenderer struct{ mock.Mock }

func (m *mockRenderer) Render(ctx context.Context, code string, vars map[string]any) (*template.RenderedMessage, error) {
	args := m.Called(ctx, code, vars)
	if msg, _ := args.Get(0).(*template.RenderedMessage); msg != nil {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func newTestService(store *mockStore, renderer TemplateRenderer, strategies ...Strategy) *Service {
	registry, err := NewRegistry(strategies...)
	if err != nil {
		panic(err)
	}
	return NewService(store, registry, renderer, time.Second)
}

func pendingEmail() *Notification {
	return &Notification{
		ID:         "n-1",
		Title:      "Hola",
		Message:    "<p>cuerpo</p>",
		Recipients: []string{"ana@example.com"},
		Channel:    ChannelEmail,
		Status:     StatusPending,
		Metadata:   map[string]any{},
	}
}

// --- Dispatch tests ---

func TestDispatch_HappyPath(t *testing.T) {
	store := &mockStore{}
	store.On("Save", mock.Anything, mock.AnythingOfType("*notification.Notification")).Return(nil)
	email := &fakeStrategy{channel: ChannelEmail}

	svc := newTestService(store, nil, email)
	n, err := svc.Dispatch(context.Background(), pendingEmail())

	require.NoError(t, err)
	assert.Equal(t, StatusSent, n.Status)
	require.NotNil(t, n.SentAt)
	assert.Equal(t, 0, n.Attempts)
	assert.Len(t, email.sent, 1)
	store.AssertNumberOfCalls(t, "Save", 2)
}

func TestDispatch_TerminalNotificationUntouched(t *testing.T) {
	store := &mockStore{}
	email := &fakeStrategy{channel: ChannelEmail}

	svc := newTestService(store, nil, email)

	n := pendingEmail()
	n.Status = StatusSent
	got, err := svc.Dispatch(context.Background(), n)

	require.NoError(t, err)
	assert.Equal(t, StatusSent, got.Status)
	assert.Empty(t, email.sent)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDispatch_UnsupportedChannel(t *testing.T) {
	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(store, nil, &fakeStrategy{channel: ChannelEmail})

	n := pendingEmail()
	n.Channel = ChannelInApp
	_, err := svc.Dispatch(context.Background(), n)

	require.Error(t, err)
	var notSupported *common.ChannelNotSupportedError
	assert.True(t, errors.As(err, &notSupported))
	assert.Equal(t, StatusFailed, n.Status)
	assert.Equal(t, 0, n.Attempts)
}

func TestDispatch_ValidationFailureDoesNotCountAttempt(t *testing.T) {
	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	email := &fakeStrategy{
		channel:     ChannelEmail,
		validateErr: common.NewValidationError("invalid email address: ana"),
	}

	svc := newTestService(store, nil, email)

	n := pendingEmail()
	_, err := svc.Dispatch(context.Background(), n)

	require.Error(t, err)
	var validationErr *common.ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, StatusFailed, n.Status)
	assert.Equal(t, 0, n.Attempts)
	assert.Equal(t, "invalid email address: ana", n.ErrorMessage)
	assert.Empty(t, email.sent)
}

func TestDispatch_SendFailureCountsAttempt(t *testing.T) {
	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	email := &fakeStrategy{
		channel: ChannelEmail,
		sendErr: common.NewSendError("EMAIL", "provider 500"),
	}

	svc := newTestService(store, nil, email)

	n := pendingEmail()
	_, err := svc.Dispatch(context.Background(), n)

	require.Error(t, err)
	var sendErr *common.SendError
	assert.True(t, errors.As(err, &sendErr))
	assert.Equal(t, StatusFailed, n.Status)
	assert.Equal(t, 1, n.Attempts)
}

func TestDispatch_PlainSendErrorIsWrapped(t *testing.T) {
	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	email := &fakeStrategy{channel: ChannelEmail, sendErr: errors.New("dial tcp: timeout")}

	svc := newTestService(store, nil, email)

	n := pendingEmail()
	_, err := svc.Dispatch(context.Background(), n)

	require.Error(t, err)
	var sendErr *common.SendError
	require.True(t, errors.As(err, &sendErr))
	assert.Equal(t, "EMAIL", sendErr.Channel)
	assert.Equal(t, 1, n.Attempts)
}

func TestDispatch_InitialSaveFailureAborts(t *testing.T) {
	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
	email := &fakeStrategy{channel: ChannelEmail}

	svc := newTestService(store, nil, email)

	_, err := svc.Dispatch(context.Background(), pendingEmail())

	require.Error(t, err)
	var persistErr *common.PersistenceError
	assert.True(t, errors.As(err, &persistErr))
	assert.Empty(t, email.sent)
}

// --- DispatchTemplate tests ---

func TestDispatchTemplate_CarriesRenderedBodiesInMetadata(t *testing.T) {
	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	email := &fakeStrategy{channel: ChannelEmail}

	renderer := &mockRenderer{}
	renderer.On("Render", mock.Anything, "BIENVENIDA", map[string]any{"nombre": "Ana"}).
		Return(&template.RenderedMessage{
			Subject:  "Bienvenido Ana",
			HTMLBody: "<p>Hola Ana</p>",
			TextBody: "Hola Ana",
		}, nil)

	svc := newTestService(store, renderer, email)
	n, err := svc.DispatchTemplate(context.Background(), "BIENVENIDA",
		[]string{"ana@example.com"}, map[string]any{"nombre": "Ana"}, ChannelEmail)

	require.NoError(t, err)
	assert.Equal(t, StatusSent, n.Status)
	assert.Equal(t, "Bienvenido Ana", n.Title)
	assert.Equal(t, "<p>Hola Ana</p>", n.Message)
	assert.Equal(t, "BIENVENIDA", n.Metadata[MetadataKeyTemplateCode])
	assert.Equal(t, "Hola Ana", n.Metadata[MetadataKeyTextBody])
	renderer.AssertExpectations(t)
}

func TestDispatchTemplate_RenderFailureShortCircuits(t *testing.T) {
	store := &mockStore{}
	email := &fakeStrategy{channel: ChannelEmail}

	renderer := &mockRenderer{}
	renderer.On("Render", mock.Anything, "NOPE", mock.Anything).
		Return(nil, common.NewTemplateNotFoundError("NOPE"))

	svc := newTestService(store, renderer, email)
	_, err := svc.DispatchTemplate(context.Background(), "NOPE", []string{"a@b.c"}, nil, ChannelEmail)

	require.Error(t, err)
	var notFound *common.TemplateNotFoundError
	assert.True(t, errors.As(err, &notFound))
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// --- Schedule tests ---

func TestSchedule_RequiresScheduledFor(t *testing.T) {
	svc := newTestService(&mockStore{}, nil, &fakeStrategy{channel: ChannelEmail})

	_, err := svc.Schedule(context.Background(), pendingEmail())

	require.Error(t, err)
	var validationErr *common.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestSchedule_PersistsAsScheduled(t *testing.T) {
	store := &mockStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(store, nil, &fakeStrategy{channel: ChannelEmail})

	future := time.Now().UTC().Add(time.Hour)
	n := pendingEmail()
	n.ScheduledFor = &future

	got, err := svc.Schedule(context.Background(), n)

	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status)
	store.AssertExpectations(t)
}

// --- RetryFailed tests ---

func TestRetryFailed_RetriesEachEligibleIndependently(t *testing.T) {
	attempts2 := pendingEmail()
	attempts2.ID = "n-retry"
	attempts2.Status = StatusFailed
	attempts2.Attempts = 2

	store := &mockStore{}
	store.On("ListFailedUnderAttempts", mock.Anything, 3, 0).Return([]*Notification{attempts2}, nil)
	store.On("Claim", mock.Anything, "n-retry", StatusFailed, StatusRetrying).Return(true, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	email := &fakeStrategy{channel: ChannelEmail}
	svc := newTestService(store, nil, email)

	retried, err := svc.RetryFailed(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, 1, retried)
	assert.Len(t, email.sent, 1)
	assert.Equal(t, StatusSent, attempts2.Status)
}

func TestRetryFailed_LostClaimIsSkipped(t *testing.T) {
	n := pendingEmail()
	n.Status = StatusFailed
	n.Attempts = 1

	store := &mockStore{}
	store.On("ListFailedUnderAttempts", mock.Anything, 3, 0).Return([]*Notification{n}, nil)
	store.On("Claim", mock.Anything, n.ID, StatusFailed, StatusRetrying).Return(false, nil)

	email := &fakeStrategy{channel: ChannelEmail}
	svc := newTestService(store, nil, email)

	retried, err := svc.RetryFailed(context.Background(), 3)

	require.NoError(t, err)
	assert.Zero(t, retried)
	assert.Empty(t, email.sent)
}

func TestRetryFailed_OneFailureDoesNotAbortBatch(t *testing.T) {
	bad := pendingEmail()
	bad.ID = "n-bad"
	bad.Status = StatusFailed
	good := pendingEmail()
	good.ID = "n-good"
	good.Status = StatusFailed

	store := &mockStore{}
	store.On("ListFailedUnderAttempts", mock.Anything, 3, 0).Return([]*Notification{bad, good}, nil)
	store.On("Claim", mock.Anything, mock.Anything, StatusFailed, StatusRetrying).Return(true, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	// The strategy fails on the first notification only.
	email := &fakeStrategy{channel: ChannelEmail}
	svc := newTestService(store, nil, &firstFailsStrategy{inner: email})

	retried, err := svc.RetryFailed(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, 2, retried)
	assert.Equal(t, StatusFailed, bad.Status)
	assert.Equal(t, StatusSent, good.Status)
}

func TestRetryFailed_NothingEligible(t *testing.T) {
	store := &mockStore{}
	store.On("ListFailedUnderAttempts", mock.Anything, 3, 0).Return([]*Notification{}, nil)

	svc := newTestService(store, nil, &fakeStrategy{channel: ChannelEmail})

	retried, err := svc.RetryFailed(context.Background(), 3)

	require.NoError(t, err)
	assert.Zero(t, retried)
}

// firstFailsStrategy fails the first Send and succeeds thereafter.
type firstFailsStrategy struct {
	inner *fakeStrategy
	calls int
}

func (f *firstFailsStrategy) Channel() Channel               { return f.inner.channel }
func (f *firstFailsStrategy) Validate(n *Notification) error { return nil }
func (f *firstFailsStrategy) Send(ctx context.Context, n *Notification) error {
	f.calls++
	if f.calls == 1 {
		return common.NewSendError(string(f.inner.channel), "provider 500")
	}
	return f.inner.Send(ctx, n)
}

// --- Get / List / Cancel tests ---

func TestGet_NotFound(t *testing.T) {
	store := &mockStore{}
	store.On("GetByID", mock.Anything, "ghost").Return(nil, nil)

	svc := newTestService(store, nil, &fakeStrategy{channel: ChannelEmail})

	_, err := svc.Get(context.Background(), "ghost")

	require.Error(t, err)
	var notFound *common.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestList_DefaultsPagination(t *testing.T) {
	store := &mockStore{}
	store.On("List", mock.Anything, ListFilter{Page: 1, PageSize: 20}).
		Return([]*Notification{pendingEmail()}, 1, nil)

	svc := newTestService(store, nil, &fakeStrategy{channel: ChannelEmail})

	resp, err := svc.List(context.Background(), ListFilter{})

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PageSize)
	store.AssertExpectations(t)
}

func TestCancel_TerminalRejected(t *testing.T) {
	sent := pendingEmail()
	sent.Status = StatusSent

	store := &mockStore{}
	store.On("GetByID", mock.Anything, sent.ID).Return(sent, nil)

	svc := newTestService(store, nil, &fakeStrategy{channel: ChannelEmail})

	_, err := svc.Cancel(context.Background(), sent.ID)

	require.Error(t, err)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCancel_HappyPath(t *testing.T) {
	n := pendingEmail()
	n.Status = StatusScheduled

	store := &mockStore{}
	store.On("GetByID", mock.Anything, n.ID).Return(n, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(store, nil, &fakeStrategy{channel: ChannelEmail})

	got, err := svc.Cancel(context.Background(), n.ID)

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}
