package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"giftdiscovery/internal/core/domain"
	"giftdiscovery/internal/core/ports"
)

// Multi fans a notification out to several channels. Individual channel
// failures are logged and swallowed; Notify itself never fails.
type Multi struct {
	notifiers []ports.Notifier
	logger    *logrus.Logger
}

// NewMulti composes the given notifiers. Nil entries are skipped.
func NewMulti(logger *logrus.Logger, notifiers ...ports.Notifier) *Multi {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	kept := make([]ports.Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, n)
		}
	}
	return &Multi{notifiers: kept, logger: logger}
}

// Notify delivers the event on every channel.
func (m *Multi) Notify(ctx context.Context, ownerID string, event domain.DiscoveryEvent) error {
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, ownerID, event); err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"job_id":   event.JobID,
				"owner_id": ownerID,
			}).Warn("Notification channel failed")
		}
	}
	return nil
}
