package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/zatekoja/salonbooking/backend/internal/domain/providers"
)

// SendGridMailer delivers mail through the SendGrid v3 API
type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewSendGridMailer creates a mailer bound to an API key and sender
func NewSendGridMailer(apiKey, fromEmail, fromName string) providers.Mailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// Send sends a single message
func (m *SendGridMailer) Send(ctx context.Context, msg providers.Mail) error {
	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(m.fromName, m.fromEmail),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.To),
		msg.PlainText,
		msg.HTML,
	)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
