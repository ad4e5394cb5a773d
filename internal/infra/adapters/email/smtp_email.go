package email

import (
	"context"
	"fmt"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/ports/adapter"

	"gopkg.in/gomail.v2"
)

var _ adapter.EmailSender = (*SMTPSender)(nil)

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPSender(host string, port int, username, password, from, fromName string) *SMTPSender {
	return &SMTPSender{
		dialer:   gomail.NewDialer(host, port, username, password),
		from:     from,
		fromName: fromName,
	}
}

func (s *SMTPSender) Name() string { return "smtp" }

// Send dials per message. gomail has no context support, so ctx is only
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	if s.fromName != "" {
		m.SetHeader("From", m.FormatAddress(s.from, s.fromName))
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: smtp: %v", domain.ErrDownstream, err)
	}
	return nil
}
