package wallet

import (
	"context"
	"log/slog"
	"time"
)

// Severity classifies a notification for display purposes.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a user-facing message emitted as an operation moves
// through its lifecycle.
type Notification struct {
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Kind      OpKind    `json:"kind,omitempty"`
	Signature string    `json:"signature,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Notifier receives operation lifecycle notifications. Implementations
// must not block for long; the console calls Notify inline.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the service log. It is the default
// notifier when no message bus is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification at a level matching its severity.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Severity == SeverityError {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, n.Message,
		"severity", string(n.Severity),
		"kind", string(n.Kind),
		"signature", n.Signature,
	)
}

// multiNotifier fans a notification out to several notifiers.
type multiNotifier []Notifier

// MultiNotifier combines notifiers into one. Nil entries are skipped.
func MultiNotifier(notifiers ...Notifier) Notifier {
	var out multiNotifier
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multiNotifier) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}
