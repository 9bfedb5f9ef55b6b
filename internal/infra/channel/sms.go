package channel

import (
	"context"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
	"github.com/FrancoVillarLaz/notifications-service/internal/domain/notification"
)

// maxSMSLength is the single-segment GSM-7 limit; longer messages are
// split by the carrier, which is worth a warning but not a rejection.
const maxSMSLength = 160

// snsPublisher is the subset of the SNS client the strategy uses.
type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var _ notification.Strategy = (*SMSStrategy)(nil)

// SMSStrategy delivers SMS notifications through AWS SNS.
type SMSStrategy struct {
	publisher snsPublisher
	senderID  string
}

// NewSMSStrategy creates a new SNS-backed SMS strategy using the default
// AWS credential chain.
func NewSMSStrategy(ctx context.Context, region, senderID string) (*SMSStrategy, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SMSStrategy{
		publisher: sns.NewFromConfig(awsCfg),
		senderID:  senderID,
	}, nil
}

// NewSMSStrategyWithPublisher wraps an existing publisher, for tests.
func NewSMSStrategyWithPublisher(publisher snsPublisher, senderID string) *SMSStrategy {
	return &SMSStrategy{publisher: publisher, senderID: senderID}
}

// Channel returns the SMS channel identifier.
func (s *SMSStrategy) Channel() notification.Channel {
	return notification.ChannelSMS
}

// Validate checks SMS preconditions: non-blank body and E.164-like numbers.
func (s *SMSStrategy) Validate(n *notification.Notification) error {
	if err := requireRecipients(n, "phone number"); err != nil {
		return err
	}
	if err := requireMessage(n); err != nil {
		return err
	}
	if len(n.Message) > maxSMSLength {
		slog.Warn("SMS body exceeds single-segment length, carrier may split it",
			"id", n.ID,
			"length", len(n.Message),
		)
	}
	return requirePhoneNumbers(n)
}

// Send publishes the message to each phone number. The first provider
// failure aborts the call; the dispatch service records it as one failed
// attempt for the whole notification.
func (s *SMSStrategy) Send(ctx context.Context, n *notification.Notification) error {
	// SMS carries the plain-text companion when one was rendered; the
	// message field may hold HTML for multi-channel templates.
	body := n.TextBody()
	if body == "" {
		body = n.Message
	}

	input := &sns.PublishInput{
		Message: &body,
	}
	var attrs map[string]types.MessageAttributeValue
	if s.senderID != "" {
		dataType := "String"
		attrs = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {DataType: &dataType, StringValue: &s.senderID},
		}
	}

	for _, phone := range n.Recipients {
		number := phone
		input.PhoneNumber = &number
		input.MessageAttributes = attrs

		if _, err := s.publisher.Publish(ctx, input); err != nil {
			return common.NewSendError(string(s.Channel()), err.Error())
		}
	}

	slog.Debug("SMS published", "id", n.ID, "recipients", len(n.Recipients))
	return nil
}
