package channel

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FrancoVillarLaz/notifications-service/internal/common"
	"github.com/FrancoVillarLaz/notifications-service/internal/domain/notification"
)

// phonePattern is the E.164-like format shared by the SMS and WhatsApp
// channels: optional leading +, no leading zero, up to 15 digits.
var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

func requireRecipients(n *notification.Notification, what string) error {
	if len(n.Recipients) == 0 {
		return common.NewValidationError(
			fmt.Sprintf("%s requires at least one %s", n.Channel, what))
	}
	return nil
}

func requireTitle(n *notification.Notification) error {
	if strings.TrimSpace(n.Title) == "" {
		return common.NewValidationError(fmt.Sprintf("%s requires a title", n.Channel))
	}
	return nil
}

func requireMessage(n *notification.Notification) error {
	if strings.TrimSpace(n.Message) == "" {
		return common.NewValidationError(fmt.Sprintf("%s requires a message body", n.Channel))
	}
	return nil
}

func requirePhoneNumbers(n *notification.Notification) error {
	for _, phone := range n.Recipients {
		if !phonePattern.MatchString(phone) {
			return common.NewValidationError("invalid phone number format: " + phone)
		}
	}
	return nil
}
