package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
	"github.com/FrancoVillarLaz/notifications-service/internal/domain/notification"
)

func waNotification(recipients ...string) *notification.Notification {
	return &notification.Notification{
		ID:         "n-1",
		Title:      "Recordatorio",
		Message:    "Su turno es mañana",
		Recipients: recipients,
		Channel:    notification.ChannelWhatsApp,
		Metadata:   map[string]any{},
	}
}

func TestWhatsAppValidate(t *testing.T) {
	s := NewWhatsAppStrategy("http://gateway", "token", "+5491100000000")

	assert.NoError(t, s.Validate(waNotification("+5491122334455")))

	err := s.Validate(waNotification("not-a-phone"))
	require.Error(t, err)
	var validationErr *common.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	assert.Error(t, s.Validate(waNotification()))
}

func TestWhatsAppSend_PostsPerRecipient(t *testing.T) {
	var msgs []whatsAppMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		var msg whatsAppMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		msgs = append(msgs, msg)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWhatsAppStrategy(srv.URL, "token", "+5491100000000")

	n := waNotification("+5491122334455", "+5491199887766")
	n.Metadata[notification.MetadataKeyWhatsAppTemplateID] = "tmpl-42"

	require.NoError(t, s.Send(context.Background(), n))
	require.Len(t, msgs, 2)
	assert.Equal(t, "+5491100000000", msgs[0].From)
	assert.Equal(t, "+5491122334455", msgs[0].To)
	assert.Equal(t, "+5491199887766", msgs[1].To)
	assert.Equal(t, "Su turno es mañana", msgs[0].Body)
	assert.Equal(t, "tmpl-42", msgs[0].TemplateID)
}

func TestWhatsAppSend_GatewayErrorAbortsBatch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWhatsAppStrategy(srv.URL, "token", "+5491100000000")

	err := s.Send(context.Background(), waNotification("+5491122334455", "+5491199887766"))

	require.Error(t, err)
	var sendErr *common.SendError
	require.True(t, errors.As(err, &sendErr))
	assert.Equal(t, "WHATSAPP", sendErr.Channel)
	assert.Equal(t, 1, calls)
}
