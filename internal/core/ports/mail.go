package ports

import "context"

// MailKind labels outgoing mail for logs and metrics.
type MailKind string

const (
	MailVerification        MailKind = "verification"
	MailPasswordReset       MailKind = "password_reset"
	MailApplicationReceived MailKind = "application_received"
)

// MailMessage is a single outgoing email.
type MailMessage struct {
	Kind    MailKind
	To      string
	Subject string
	Body    string
}

// Mailer delivers one message synchronously.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// MailQueue accepts messages for asynchronous delivery.
type MailQueue interface {
	Enqueue(msg MailMessage)
}
