package mail

import (
	"gopkg.in/gomail.v2"
)

// Sender is the single outbound-mail capability the engine consumes.
type Sender interface {
	Send(subject, body, from string, to []string) error
}

// SMTPSender delivers through a plain SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
}

func NewSMTP(host string, port int, username, password string) *SMTPSender {
	return &SMTPSender{dialer: gomail.NewDialer(host, port, username, password)}
}

func (s *SMTPSender) Send(subject, body, from string, to []string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}

// Discard drops mail on the floor. Used when no relay is configured.
type Discard struct{}

func (Discard) Send(string, string, string, []string) error { return nil }
