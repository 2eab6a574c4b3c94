package providers

import "context"

// Mail is an outbound email
type Mail struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Mailer sends transactional email
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}
