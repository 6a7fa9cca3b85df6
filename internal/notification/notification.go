package notification

import (
    "context"
    "log/slog"
)

const (
    // KindTransferSubmitted indicates a caller confirmed a transfer request.
    KindTransferSubmitted = "transfer_submitted"
    // KindAccountCreated indicates a caller completed phone registration.
    KindAccountCreated = "account_created"
)

// Message describes a notification payload.
type Message struct {
    Kind        string
    Destination string
    Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
    Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger until a
// delivery channel is wired.
type LoggerNotifier struct {
    logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
    return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
    if n == nil || n.logger == nil {
        return nil
    }
    n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
    return nil
}
