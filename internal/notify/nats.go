package notify

import (
	"fmt"
	"log/slog"

	"turnstile/internal/messaging"
)

// NATSChannel publishes notifications to a per-client subject. The gateway
// holding the client's duplex connection subscribes to that subject and
// relays pushes downstream.
type NATSChannel struct {
	nats          *messaging.NATSClient
	subjectPrefix string
}

func NewNATSChannel(nats *messaging.NATSClient) *NATSChannel {
	return &NATSChannel{
		nats:          nats,
		subjectPrefix: "queue.client.",
	}
}

// Push publishes asynchronously; failures are logged and dropped.
func (c *NATSChannel) Push(clientID string, n Notification) {
	subject := fmt.Sprintf("%s%s", c.subjectPrefix, clientID)

	go func() {
		if err := c.nats.Publish(subject, n); err != nil {
			slog.Debug("Failed to push queue notification",
				"error", err,
				"client_id", clientID,
				"kind", n.Kind)
		}
	}()
}
