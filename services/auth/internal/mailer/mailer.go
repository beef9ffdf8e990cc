// Package mailer delivers password reset codes. Implementations never log the
// code; the dev mailer writes the rendered message to its own writer instead.
package mailer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/diagnosis/hotel-frontdesk/pkg/config"
	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
)

type Notifier interface {
	SendOTP(ctx context.Context, email, code string) error
}

const otpSubject = "Your OTP for Password Reset"

// Message is a rendered email shared by every transport.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

func OTPMessage(email, code string) Message {
	return Message{
		To:      email,
		Subject: otpSubject,
		Text:    fmt.Sprintf("Your OTP to reset your password is: %s. It is valid for 10 minutes.", code),
		HTML: fmt.Sprintf(`
		<h2>Password reset</h2>
		<p>Your OTP to reset your password is:</p>
		<p><strong style="font-size: 24px; letter-spacing: 4px;">%s</strong></p>
		<p>It is valid for 10 minutes. If you did not ask for a reset, ignore this email.</p>
	`, code),
	}
}

// New picks a transport: dev output, MailerSend when an API key is set, SMTP otherwise.
func New(cfg config.EmailConfig) Notifier {
	switch {
	case cfg.DevMode:
		logger.Info("Mailer running in dev mode", "output", "stdout")
		return NewDevMailer(os.Stdout)
	case cfg.MailerSendKey != "":
		logger.Info("Mailer using MailerSend", "from", cfg.SMTPFrom)
		return NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
	default:
		logger.Info("Mailer using SMTP", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.FromName, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
	}
}

type DevMailer struct {
	out io.Writer
}

func NewDevMailer(out io.Writer) *DevMailer {
	return &DevMailer{out: out}
}

func (d *DevMailer) SendOTP(ctx context.Context, email, code string) error {
	msg := OTPMessage(email, code)
	logger.InfoContext(ctx, "[DEV MAIL] password reset email rendered", "to", email)

	_, err := fmt.Fprintf(d.out, "\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"PASSWORD RESET EMAIL (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s\n"+
		"Subject: %s\n"+
		"\n"+
		"%s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		msg.To, msg.Subject, msg.Text)
	return err
}
