package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"giftdiscovery/internal/core/domain"
)

// CompleteSubject is the NATS subject discovery completion events are
// published on.
const CompleteSubject = "discovery.complete"

// NATSNotifier publishes discovery events to NATS so downstream consumers
// (push delivery, email) can react without coupling to this process.
type NATSNotifier struct {
	conn *nats.Conn
}

// NewNATSNotifier wraps an established NATS connection.
func NewNATSNotifier(conn *nats.Conn) *NATSNotifier {
	return &NATSNotifier{conn: conn}
}

// Notify publishes the event. Failures are returned for the caller to log;
// they never affect job state.
func (n *NATSNotifier) Notify(ctx context.Context, ownerID string, event domain.DiscoveryEvent) error {
	event.OwnerID = ownerID
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize discovery event: %w", err)
	}
	if err := n.conn.Publish(CompleteSubject, payload); err != nil {
		return fmt.Errorf("failed to publish discovery event: %w", err)
	}
	return nil
}
