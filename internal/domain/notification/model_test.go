package notification

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
)

func TestNew_DefaultsApplied(t *testing.T) {
	n, err := New(Params{
		Title:      "Hola",
		Message:    "cuerpo",
		Recipients: []string{"ana@example.com"},
		Channel:    ChannelEmail,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, StatusPending, n.Status)
	assert.Equal(t, 0, n.Attempts)
	assert.NotNil(t, n.Metadata)
	assert.False(t, n.CreatedAt.IsZero())
	assert.Equal(t, n.CreatedAt, n.UpdatedAt)
	assert.Nil(t, n.SentAt)
}

func TestNew_FutureScheduleStartsScheduled(t *testing.T) {
	future := time.Now().UTC().Add(time.Hour)
	n, err := New(Params{
		Title:        "Hola",
		Recipients:   []string{"ana@example.com"},
		Channel:      ChannelEmail,
		ScheduledFor: &future,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, n.Status)
}

func TestNew_PastScheduleStartsPending(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	n, err := New(Params{
		Title:        "Hola",
		Recipients:   []string{"ana@example.com"},
		Channel:      ChannelEmail,
		ScheduledFor: &past,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusPending, n.Status)
}

func TestNew_ValidationFailures(t *testing.T) {
	cases := []struct {
		name   string
		params Params
	}{
		{"missing channel", Params{Title: "t", Recipients: []string{"a"}}},
		{"unknown channel", Params{Title: "t", Recipients: []string{"a"}, Channel: "CARRIER_PIGEON"}},
		{"blank title", Params{Title: "  ", Recipients: []string{"a"}, Channel: ChannelEmail}},
		{"no recipients", Params{Title: "t", Channel: ChannelEmail}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.params)
			require.Error(t, err)
			var validationErr *common.ValidationError
			assert.True(t, errors.As(err, &validationErr))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusSent.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusScheduled.Terminal())
	assert.False(t, StatusFailed.Terminal())
	assert.False(t, StatusRetrying.Terminal())
}

func TestMarkSent(t *testing.T) {
	n := &Notification{Status: StatusPending, ErrorMessage: "old failure"}
	n.MarkSent()

	assert.Equal(t, StatusSent, n.Status)
	require.NotNil(t, n.SentAt)
	assert.Empty(t, n.ErrorMessage)
}

func TestMarkFailed_DoesNotCountAttempt(t *testing.T) {
	n := &Notification{Status: StatusPending, Attempts: 1}
	n.MarkFailed("invalid recipient")

	assert.Equal(t, StatusFailed, n.Status)
	assert.Equal(t, "invalid recipient", n.ErrorMessage)
	assert.Equal(t, 1, n.Attempts)
}

func TestMarkSendFailure_CountsAttempt(t *testing.T) {
	n := &Notification{Status: StatusPending, Attempts: 1}
	n.MarkSendFailure("provider timeout")

	assert.Equal(t, StatusFailed, n.Status)
	assert.Equal(t, 2, n.Attempts)
}

func TestCancel(t *testing.T) {
	n := &Notification{ID: "n-1", Status: StatusScheduled}
	require.NoError(t, n.Cancel())
	assert.Equal(t, StatusCancelled, n.Status)

	sent := &Notification{ID: "n-2", Status: StatusSent}
	assert.Error(t, sent.Cancel())
	assert.Equal(t, StatusSent, sent.Status)
}

func TestTextBody(t *testing.T) {
	n := &Notification{Metadata: map[string]any{MetadataKeyTextBody: "plano"}}
	assert.Equal(t, "plano", n.TextBody())

	assert.Empty(t, (&Notification{}).TextBody())
	assert.Empty(t, (&Notification{Metadata: map[string]any{MetadataKeyTextBody: 42}}).TextBody())
}
