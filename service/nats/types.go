package nats

import (
	"time"

	"github.com/dropxhq/dropx/service/wallet"
)

// OperationEvent is an operation lifecycle event published to JetStream.
// Events are published to the subject "ops.{wallet_address}".
type OperationEvent struct {
	// Operation identity
	Kind      string `json:"kind"`
	Signature string `json:"signature,omitempty"`

	// Wallet and network context
	WalletAddress string `json:"wallet_address"`
	Network       string `json:"network"`

	// Lifecycle notification
	Severity string `json:"severity"`
	Message  string `json:"message"`

	// Metadata
	EmittedAt   time.Time `json:"emitted_at"`
	PublishedAt time.Time `json:"published_at"`
}

// FromNotification converts a console notification to a publishable event.
func FromNotification(n wallet.Notification, walletAddress, network string) *OperationEvent {
	return &OperationEvent{
		Kind:          string(n.Kind),
		Signature:     n.Signature,
		WalletAddress: walletAddress,
		Network:       network,
		Severity:      string(n.Severity),
		Message:       n.Message,
		EmittedAt:     n.EmittedAt,
		PublishedAt:   time.Now().UTC(),
	}
}
