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

func emailNotification(recipients ...string) *notification.Notification {
	return &notification.Notification{
		ID:         "n-1",
		Title:      "Bienvenido",
		Message:    "<p>Hola</p>",
		Recipients: recipients,
		Channel:    notification.ChannelEmail,
		Metadata:   map[string]any{},
	}
}

func TestEmailValidate(t *testing.T) {
	s := NewEmailStrategy("key", "noreply@example.com", "Notifications")

	assert.NoError(t, s.Validate(emailNotification("ana@example.com")))

	cases := []struct {
		name string
		n    *notification.Notification
	}{
		{"no recipients", emailNotification()},
		{"bad address", emailNotification("not-an-address")},
		{"blank title", func() *notification.Notification {
			n := emailNotification("ana@example.com")
			n.Title = " "
			return n
		}()},
		{"blank body", func() *notification.Notification {
			n := emailNotification("ana@example.com")
			n.Message = ""
			return n
		}()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Validate(tc.n)
			require.Error(t, err)
			var validationErr *common.ValidationError
			assert.True(t, errors.As(err, &validationErr))
		})
	}
}

func TestEmailSend_HappyPath(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewEmailStrategy("secret", "noreply@example.com", "Notifications")
	s.endpoint = srv.URL

	n := emailNotification("ana@example.com")
	n.Metadata[notification.MetadataKeyTextBody] = "Hola"

	require.NoError(t, s.Send(context.Background(), n))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "Notifications <noreply@example.com>", got["from"])
	assert.Equal(t, "Bienvenido", got["subject"])
	assert.Equal(t, "<p>Hola</p>", got["html"])
	assert.Equal(t, "Hola", got["text"])
}

func TestEmailSend_ProviderErrorIsSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer srv.Close()

	s := NewEmailStrategy("secret", "noreply@example.com", "")
	s.endpoint = srv.URL

	err := s.Send(context.Background(), emailNotification("ana@example.com"))

	require.Error(t, err)
	var sendErr *common.SendError
	require.True(t, errors.As(err, &sendErr))
	assert.Equal(t, "EMAIL", sendErr.Channel)
	assert.Contains(t, sendErr.Message, "invalid from address")
}

func TestEmailSend_ConnectionFailureIsSendError(t *testing.T) {
	s := NewEmailStrategy("secret", "noreply@example.com", "")
	s.endpoint = "http://127.0.0.1:1" // nothing listens here

	err := s.Send(context.Background(), emailNotification("ana@example.com"))

	require.Error(t, err)
	var sendErr *common.SendError
	assert.True(t, errors.As(err, &sendErr))
}
