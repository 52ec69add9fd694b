// internal/app/system/mailer/smtp.go
package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/email"
)

// SMTPConfig configures the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int // 587 uses STARTTLS, 465 implicit TLS
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// messageSender is the part of *email.Sender the SMTP sender calls.
type messageSender interface {
	Send(ctx context.Context, msg email.Message) error
}

// SMTPSender delivers email through an SMTP relay using waffle's
// pantry/email.
type SMTPSender struct {
	smtp messageSender
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("mailer: smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mailer: from address is required")
	}
	return &SMTPSender{smtp: email.NewSender(email.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		Password:    cfg.Password,
		FromAddress: cfg.From,
		FromName:    cfg.FromName,
		UseSSL:      cfg.Port == 465,
		Timeout:     cfg.Timeout,
	})}, nil
}

func (s *SMTPSender) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return ErrNoRecipient
	}
	return s.smtp.Send(ctx, email.Message{
		To:       []string{e.To},
		Subject:  e.Subject,
		TextBody: e.TextBody,
		HTMLBody: e.HTMLBody,
	})
}
