// Package mail delivers outgoing portal email over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/patricktravel/portal/internal/core/ports"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c Config) validate() error {
	if c.Host == "" {
		return errors.New("missing SMTP host")
	}
	if c.Port == 0 {
		return errors.New("missing SMTP port")
	}
	if c.From == "" {
		return errors.New("missing SMTP sender")
	}
	return nil
}

// SMTPMailer sends one message per dial.
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SMTPMailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

// Send delivers msg. gomail has no context support, so ctx is only checked
// before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg ports.MailMessage) error {
	if msg.To == "" {
		return errors.New("no recipient specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(buildMessage(m.from, msg)); err != nil {
		return fmt.Errorf("send %s mail: %w", msg.Kind, err)
	}
	return nil
}

func buildMessage(from string, msg ports.MailMessage) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	return gm
}

// LogMailer only logs messages. Used when no SMTP host is configured.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg ports.MailMessage) error {
	m.log.Info().
		Str("kind", string(msg.Kind)).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("mail not sent, SMTP disabled")
	return nil
}

// New picks SMTP when a host is configured and the log mailer otherwise.
func New(cfg Config, log zerolog.Logger) (ports.Mailer, error) {
	if cfg.Host == "" {
		log.Warn().Msg("SMTP_HOST not set, outgoing mail will only be logged")
		return NewLogMailer(log), nil
	}
	return NewSMTPMailer(cfg)
}
