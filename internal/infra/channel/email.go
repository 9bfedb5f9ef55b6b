package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
	"github.com/FrancoVillarLaz/notifications-service/internal/domain/notification"
)

const resendEndpoint = "https://api.resend.com/emails"

var _ notification.Strategy = (*EmailStrategy)(nil)

// EmailStrategy delivers EMAIL notifications through the Resend API.
type EmailStrategy struct {
	apiKey      string
	fromAddress string
	fromName    string
	endpoint    string
	httpClient  *http.Client
}

// NewEmailStrategy creates a new Resend-backed email strategy.
func NewEmailStrategy(apiKey, fromAddress, fromName string) *EmailStrategy {
	return &EmailStrategy{
		apiKey:      apiKey,
		fromAddress: fromAddress,
		fromName:    fromName,
		endpoint:    resendEndpoint,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Channel returns the email channel identifier.
func (s *EmailStrategy) Channel() notification.Channel {
	return notification.ChannelEmail
}

// Validate checks email preconditions: non-blank title and body, and every
// recipient shaped like an address.
func (s *EmailStrategy) Validate(n *notification.Notification) error {
	if err := requireRecipients(n, "recipient address"); err != nil {
		return err
	}
	if err := requireTitle(n); err != nil {
		return err
	}
	if err := requireMessage(n); err != nil {
		return err
	}
	for _, addr := range n.Recipients {
		if !strings.Contains(addr, "@") {
			return common.NewValidationError("invalid email format: " + addr)
		}
	}
	return nil
}

// Send delivers the notification via the Resend API. The title becomes the
// subject and the message the HTML body; a plain-text companion from
// metadata is sent alongside when present.
func (s *EmailStrategy) Send(ctx context.Context, n *notification.Notification) error {
	from := s.fromAddress
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}

	payload := map[string]any{
		"from":    from,
		"to":      n.Recipients,
		"subject": n.Title,
		"html":    n.Message,
	}

	if text := n.TextBody(); text != "" {
		payload["text"] = text
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return common.NewSendError(string(s.Channel()), err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &errResp)

		msg := errResp.Message
		if msg == "" {
			msg = fmt.Sprintf("resend API error: status %d", resp.StatusCode)
		}
		return common.NewSendError(string(s.Channel()), msg)
	}

	return nil
}
