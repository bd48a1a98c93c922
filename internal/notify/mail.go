package notify

import (
	"context"
	"errors"

	"gopkg.in/mail.v2"
)

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// Mail sends each notification as a plain-text email.
type Mail struct {
	From   string
	To     []string
	Dialer Dialer
}

func NewMail(host string, port int, user, password, from string, to []string) *Mail {
	if host == "" || from == "" || len(to) == 0 {
		return nil
	}
	if user == "" {
		user = from
	}
	return &Mail{
		From:   from,
		To:     to,
		Dialer: mail.NewDialer(host, port, user, password),
	}
}

func (m *Mail) Send(ctx context.Context, title, text string) error {
	if m == nil || m.Dialer == nil {
		return errors.New("mail disabled")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := mail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", m.To...)
	msg.SetHeader("Subject", title)
	body := text
	if body == "" {
		body = title
	}
	msg.SetBody("text/plain", body)
	return m.Dialer.DialAndSend(msg)
}
