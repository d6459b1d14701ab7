package notifications

import (
	"fmt"

	"github.com/detailerapp/backend/internal/server/models"
	"github.com/detailerapp/backend/internal/server/push"
)

// Delivery hints shared by every notification kind.
const (
	soundDefault  = "default"
	priorityHigh  = "high"
	badgeIncrease = 1
)

// PayloadForKind renders the push payload for a request. The message text
// depends only on the kind and the sender's display label; no other request
// state leaks into the notification.
func PayloadForKind(kind models.NotificationKind, senderLabel string) (push.Payload, error) {
	p := push.Payload{
		Sound:    soundDefault,
		Priority: priorityHigh,
		Badge:    badgeIncrease,
	}

	switch kind {
	case models.KindNewMessage:
		p.Title = "📨 - New Message!"
		p.Body = fmt.Sprintf("You have received a message from %s.", senderLabel)
	case models.KindNewConnection:
		p.Title = "👥 - New connection request!"
		p.Body = fmt.Sprintf("%s wants to connect with you! Open the app to accept.", senderLabel)
	case models.KindNewComment:
		p.Title = "💬 - New comment!"
		p.Body = fmt.Sprintf("%s left a comment.", senderLabel)
	default:
		return push.Payload{}, fmt.Errorf("unknown notification kind %q", kind)
	}

	return p, nil
}
