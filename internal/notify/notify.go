// Package notify delivers human-readable trade and error notices.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier sends one text message per simulated trade or cycle fault.
// Delivery failures are the caller's to log; they must never abort the
// polling loop.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// LogNotifier writes notifications to the log only, used when no Telegram
// credentials are configured.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier wraps a zerolog logger as a notification sink.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs the notification text.
func (n *LogNotifier) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.log.Info().Str("notice", text).Msg("notification")
	return nil
}
