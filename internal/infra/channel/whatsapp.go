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

var _ notification.Strategy = (*WhatsAppStrategy)(nil)

// WhatsAppStrategy delivers messages through an HTTP WhatsApp gateway
// (Meta Cloud API or a compatible bridge).
type WhatsAppStrategy struct {
	gatewayURL string
	token      string
	fromNumber string
	httpClient *http.Client
}

// NewWhatsAppStrategy creates a new gateway-backed WhatsApp strategy.
func NewWhatsAppStrategy(gatewayURL, token, fromNumber string) *WhatsAppStrategy {
	return &WhatsAppStrategy{
		gatewayURL: gatewayURL,
		token:      token,
		fromNumber: fromNumber,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Channel returns the WhatsApp channel identifier.
func (s *WhatsAppStrategy) Channel() notification.Channel {
	return notification.ChannelWhatsApp
}

// Validate checks WhatsApp preconditions: non-blank body and
// E.164-like numbers.
func (s *WhatsAppStrategy) Validate(n *notification.Notification) error {
	if err := requireRecipients(n, "phone number"); err != nil {
		return err
	}
	if err := requireMessage(n); err != nil {
		return err
	}
	return requirePhoneNumbers(n)
}

type whatsAppMessage struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Body       string `json:"body"`
	TemplateID string `json:"template_id,omitempty"`
}

// Send posts one gateway message per recipient. A failing recipient
// aborts the batch so the whole notification is retried together.
func (s *WhatsAppStrategy) Send(ctx context.Context, n *notification.Notification) error {
	templateID, _ := n.Metadata[notification.MetadataKeyWhatsAppTemplateID].(string)

	for _, phone := range n.Recipients {
		msg := whatsAppMessage{
			From:       s.fromNumber,
			To:         phone,
			Body:       n.Message,
			TemplateID: templateID,
		}
		if err := s.post(ctx, msg); err != nil {
			return err
		}
	}

	slog.Debug("WhatsApp messages sent", "id", n.ID, "recipients", len(n.Recipients))
	return nil
}

func (s *WhatsAppStrategy) post(ctx context.Context, msg whatsAppMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return common.NewSendError(string(s.Channel()), err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return common.NewSendError(string(s.Channel()), err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

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
	return nil
}
