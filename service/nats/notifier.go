package nats

import (
	"context"
	"log/slog"

	"github.com/dropxhq/dropx/service/wallet"
)

// Notifier adapts a Publisher to the console's notification interface.
// The wallet address and network are resolved at publish time so events
// follow network switches.
type Notifier struct {
	pub     Publisher
	address func() string
	network func() string
	logger  *slog.Logger
}

// NewNotifier creates a notifier publishing to pub. address and network
// supply the current wallet address and network label per event.
func NewNotifier(pub Publisher, address, network func() string, logger *slog.Logger) *Notifier {
	return &Notifier{
		pub:     pub,
		address: address,
		network: network,
		logger:  logger,
	}
}

// Notify publishes the notification as an operation event. Publish
// failures are logged, never surfaced to the operation itself.
func (n *Notifier) Notify(ctx context.Context, note wallet.Notification) {
	event := FromNotification(note, n.address(), n.network())
	if err := n.pub.PublishOperation(ctx, event); err != nil {
		n.logger.WarnContext(ctx, "failed to publish operation event",
			"kind", event.Kind,
			"signature", event.Signature,
			"error", err,
		)
	}
}
