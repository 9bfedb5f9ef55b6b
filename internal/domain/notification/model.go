package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
)

// Channel represents a notification delivery channel.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelPush     Channel = "PUSH_NOTIFICATION"
	ChannelInApp    Channel = "IN_APP_NOTIFICATION"
)

// validChannels is the set of all recognized channels.
var validChannels = map[Channel]bool{
	ChannelEmail:    true,
	ChannelSMS:      true,
	ChannelWhatsApp: true,
	ChannelPush:     true,
	ChannelInApp:    true,
}

// IsValidChannel checks whether a channel is recognized.
func IsValidChannel(ch Channel) bool {
	return validChannels[ch]
}

// Status represents the delivery state of a notification.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusScheduled Status = "SCHEDULED"
	StatusSent      Status = "SENT"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusRetrying  Status = "RETRYING"
)

// Terminal reports whether the status admits no further dispatch.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusCancelled
}

// Metadata keys recognized by the channel strategies. Metadata is the only
// extensibility seam between the dispatch engine and channel-specific
// behavior.
const (
	// MetadataKeyTemplateCode carries the originating template code.
	MetadataKeyTemplateCode = "template_code"
	// MetadataKeyTextBody carries the plain-text companion body for
	// channels that send a multipart message.
	MetadataKeyTextBody = "text_body"
	// MetadataKeyWhatsAppTemplateID carries a pre-approved provider
	// template reference for the WhatsApp channel.
	MetadataKeyWhatsAppTemplateID = "whatsapp_template_id"
)

// Notification is the unit of work: a rendered message bound to a channel
// and a recipient set, carrying its own delivery state.
type Notification struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Recipients   []string       `json:"recipients"`
	Channel      Channel        `json:"channel"`
	Status       Status         `json:"status"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Attempts     int            `json:"attempts"`
}

// Params are the caller-supplied fields for a new notification.
type Params struct {
	Title        string
	Message      string
	Recipients   []string
	Channel      Channel
	Metadata     map[string]any
	ScheduledFor *time.Time
}

// New builds a valid notification, filling defaults: id, timestamps, attempt
// counter, empty metadata, and the initial state — SCHEDULED when a future
// scheduled-for timestamp is set, PENDING otherwise. No hidden hook runs on
// save; the object is complete once constructed.
func New(p Params) (*Notification, error) {
	if p.Channel == "" {
		return nil, common.NewValidationError("channel is required")
	}
	if !IsValidChannel(p.Channel) {
		return nil, common.NewValidationError(fmt.Sprintf("unknown channel: %s", p.Channel))
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, common.NewValidationError("title is required")
	}
	if len(p.Recipients) == 0 {
		return nil, common.NewValidationError("at least one recipient is required")
	}

	now := time.Now().UTC()

	status := StatusPending
	if p.ScheduledFor != nil && p.ScheduledFor.After(now) {
		status = StatusScheduled
	}

	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return &Notification{
		ID:           uuid.New().String(),
		Title:        p.Title,
		Message:      p.Message,
		Recipients:   append([]string(nil), p.Recipients...),
		Channel:      p.Channel,
		Status:       status,
		Metadata:     metadata,
		ScheduledFor: p.ScheduledFor,
		CreatedAt:    now,
		UpdatedAt:    now,
		Attempts:     0,
	}, nil
}

// MarkSent transitions the notification to its terminal success state.
func (n *Notification) MarkSent() {
	now := time.Now().UTC()
	n.Status = StatusSent
	n.SentAt = &now
	n.UpdatedAt = now
	n.ErrorMessage = ""
}

// MarkFailed records a failure that is not a delivery attempt: channel
// resolution or validation. The attempt counter is untouched.
func (n *Notification) MarkFailed(reason string) {
	n.Status = StatusFailed
	n.ErrorMessage = reason
	n.UpdatedAt = time.Now().UTC()
}

// MarkSendFailure records a provider-level delivery failure and increments
// the attempt counter, leaving the notification eligible for the retry sweep.
func (n *Notification) MarkSendFailure(reason string) {
	n.MarkFailed(reason)
	n.Attempts++
}

// Cancel transitions a non-terminal notification to CANCELLED. The engine
// itself never produces this transition; it is external-only.
func (n *Notification) Cancel() error {
	if n.Status.Terminal() {
		return common.NewValidationError(
			fmt.Sprintf("notification %s is already %s", n.ID, n.Status))
	}
	n.Status = StatusCancelled
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// TextBody returns the plain-text companion body from metadata, if present.
func (n *Notification) TextBody() string {
	if n.Metadata == nil {
		return ""
	}
	if v, ok := n.Metadata[MetadataKeyTextBody].(string); ok {
		return v
	}
	return ""
}

// ListFilter defines pagination and filtering options for listing notifications.
type ListFilter struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Status    string `form:"status"`
	Channel   string `form:"channel"`
	Recipient string `form:"recipient"`
}

// ListResponse wraps a paginated list of notifications.
type ListResponse struct {
	Notifications []*Notification `json:"notifications"`
	Total         int             `json:"total"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
}
