package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
	"github.com/FrancoVillarLaz/notifications-service/internal/domain/notification"
)

// Platform-recommended lengths before the OS truncates the banner.
const (
	pushTitleSoftLimit = 65
	pushBodySoftLimit  = 240
)

var _ notification.Strategy = (*PushStrategy)(nil)

// PushStrategy delivers push notifications through an HTTP push gateway.
type PushStrategy struct {
	gatewayURL string
	apiKey     string
	httpClient *http.Client
}

// NewPushStrategy creates a new gateway-backed push strategy.
func NewPushStrategy(gatewayURL, apiKey string) *PushStrategy {
	return &PushStrategy{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Channel returns the push channel identifier.
func (s *PushStrategy) Channel() notification.Channel {
	return notification.ChannelPush
}

// Validate checks push preconditions. Overlong title or body only log a
// warning; platforms truncate rather than reject.
func (s *PushStrategy) Validate(n *notification.Notification) error {
	if err := requireRecipients(n, "device token"); err != nil {
		return err
	}
	if err := requireTitle(n); err != nil {
		return err
	}
	if err := requireMessage(n); err != nil {
		return err
	}
	if len(n.Title) > pushTitleSoftLimit {
		slog.Warn("push title exceeds recommended length, platform may truncate it",
			"id", n.ID, "length", len(n.Title))
	}
	if len(n.Message) > pushBodySoftLimit {
		slog.Warn("push body exceeds recommended length, platform may truncate it",
			"id", n.ID, "length", len(n.Message))
	}
	return nil
}

type pushMessage struct {
	Tokens []string       `json:"tokens"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data,omitempty"`
}

// Send posts a single multicast request with all device tokens.
func (s *PushStrategy) Send(ctx context.Context, n *notification.Notification) error {
	msg := pushMessage{
		Tokens: n.Recipients,
		Title:  n.Title,
		Body:   n.Message,
		Data:   n.Metadata,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return common.NewSendError(string(s.Channel()), err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return common.NewSendError(string(s.Channel()), err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return common.NewSendError(string(s.Channel()), err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return common.NewSendError(string(s.Channel()),
			fmt.Sprintf("gateway returned %d: %s", resp.StatusCode, string(detail)))
	}

	slog.Debug("push notification sent", "id", n.ID, "tokens", len(n.Recipients))
	return nil
}
