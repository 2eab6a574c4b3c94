package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
)

// LogMailer writes outgoing mail to the log instead of sending it. Used in
// development when no SendGrid key is configured.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a mailer that only logs
func NewLogMailer(logger zerolog.Logger) providers.Mailer {
	return &LogMailer{logger: logger}
}

// Send logs the message
func (m *LogMailer) Send(ctx context.Context, msg providers.Mail) error {
	m.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.PlainText).
		Msg("Email not sent (log mailer)")
	return nil
}
