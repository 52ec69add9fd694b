package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/waffle/pantry/email"
)

type capturedSMTP struct {
	msgs []email.Message
}

func (c *capturedSMTP) Send(_ context.Context, msg email.Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestNewSMTPSender_Validates(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{From: "desk@campus.edu"}); err == nil {
		t.Error("expected error for missing host")
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp.campus.edu"}); err == nil {
		t.Error("expected error for missing from address")
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp.campus.edu", Port: 587, From: "desk@campus.edu"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSMTPSender_MapsEmail(t *testing.T) {
	c := &capturedSMTP{}
	s := &SMTPSender{smtp: c}

	err := s.Send(context.Background(), Email{
		To:       "stu@campus.edu",
		Subject:  "Complaint received",
		TextBody: "We got it",
		HTMLBody: "<p>We got it</p>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(c.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(c.msgs))
	}
	m := c.msgs[0]
	if len(m.To) != 1 || m.To[0] != "stu@campus.edu" || m.Subject != "Complaint received" {
		t.Errorf("unexpected message %+v", m)
	}
	if m.TextBody != "We got it" || m.HTMLBody != "<p>We got it</p>" {
		t.Errorf("bodies not carried over: %+v", m)
	}

	if err := s.Send(context.Background(), Email{Subject: "x"}); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("expected ErrNoRecipient, got %v", err)
	}
	if len(c.msgs) != 1 {
		t.Error("an email without recipient should not reach the relay")
	}
}
