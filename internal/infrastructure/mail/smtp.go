// Package mail delivers transactional email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 15 * time.Second

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From may carry a display name, e.g. "Lumina <no-reply@lumina.app>".
	From    string
	Timeout time.Duration
}

type sendFunc func(ctx context.Context, msgs ...*gomail.Msg) error

// SMTPMailer sends HTML mail through an SMTP relay.
type SMTPMailer struct {
	from *netmail.Address
	send sendFunc
}

// NewSMTPMailer validates cfg and builds a mailer. Credentials are optional.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail sender address is required")
	}
	from, err := netmail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid mail sender address %q: %w", cfg.From, err)
	}

	port := cfg.Port
	if port == 0 {
		port = 587
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTimeout(timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPMailer{from: from, send: client.DialAndSendWithContext}, nil
}

// Send delivers one HTML message to a single recipient.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := m.compose(to, subject, htmlBody)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// compose builds the message. The From header keeps the display name while
// the envelope sender is the bare address.
func (m *SMTPMailer) compose(to, subject, htmlBody string) (*gomail.Msg, error) {
	if strings.ContainsAny(to, "\r\n") {
		return nil, fmt.Errorf("invalid recipient %q", to)
	}
	msg := gomail.NewMsg()
	if err := msg.From(m.from.String()); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.EnvelopeFrom(m.from.Address); err != nil {
		return nil, fmt.Errorf("set envelope sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)
	return msg, nil
}

// LogMailer records that a message would have been sent. The body carries a
// reset token and is never logged. It is used when no SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer builds a LogMailer; a nil logger means slog.Default.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs the recipient and subject.
func (m *LogMailer) Send(ctx context.Context, to, subject, _ string) error {
	m.logger.InfoContext(ctx, "mail not sent, no smtp relay configured",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}
