package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/mailersend/mailersend-go"
)

var ErrNotConfigured = errors.New("mailersend not configured")

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *MailerSendClient) SendOTP(ctx context.Context, email, code string) error {
	if !m.enabled {
		return ErrNotConfigured
	}
	msg := OTPMessage(email, code)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out := m.client.Email.NewMessage()
	out.SetFrom(m.from)
	out.SetRecipients([]mailersend.Recipient{{Email: msg.To}})
	out.SetSubject(msg.Subject)
	out.SetText(msg.Text)
	out.SetHTML(msg.HTML)

	_, err := m.client.Email.Send(ctx, out)
	return err
}
