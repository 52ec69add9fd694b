// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Email is a single outgoing message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers one email. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// ErrNoRecipient is returned when an Email has no To address.
var ErrNoRecipient = errors.New("mailer: email has no recipient")

// LogSender writes emails to the log instead of delivering them.
// Used in development and when mail_sender=log.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, e Email) error {
	if e.To == "" {
		return ErrNoRecipient
	}
	s.log.Info("email (log sender)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.String("body", e.TextBody),
	)
	return nil
}

// SendGridConfig configures the SendGrid sender.
type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
	Sandbox  bool
}

// SendGridSender delivers email through the SendGrid v3 API.
type SendGridSender struct {
	client  *sendgrid.Client
	from    *mail.Email
	sandbox bool
}

func NewSendGridSender(cfg SendGridConfig) (*SendGridSender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("mailer: sendgrid api key is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mailer: from address is required")
	}
	return &SendGridSender{
		client:  sendgrid.NewSendClient(cfg.APIKey),
		from:    mail.NewEmail(cfg.FromName, cfg.From),
		sandbox: cfg.Sandbox,
	}, nil
}

func (s *SendGridSender) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return ErrNoRecipient
	}
	msg := mail.NewSingleEmail(s.from, e.Subject, mail.NewEmail("", e.To), e.TextBody, e.HTMLBody)
	if s.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
