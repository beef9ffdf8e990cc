package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/hotel-frontdesk/pkg/config"
	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
)

func TestDevMailer_WritesCodeToOutputNotLogs(t *testing.T) {
	var logs bytes.Buffer
	prev := logger.Default()
	logger.SetDefault(slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})))
	t.Cleanup(func() { logger.SetDefault(prev) })

	var out bytes.Buffer
	require.NoError(t, NewDevMailer(&out).SendOTP(context.Background(), "desk@hotel.test", "482913"))

	assert.Contains(t, out.String(), "To: desk@hotel.test")
	assert.Contains(t, out.String(), "Subject: Your OTP for Password Reset")
	assert.Contains(t, out.String(), "Your OTP to reset your password is: 482913. It is valid for 10 minutes.")

	assert.Contains(t, logs.String(), "desk@hotel.test")
	assert.NotContains(t, logs.String(), "482913")
}

func TestRender_MultipartAlternative(t *testing.T) {
	body := string(render(`"Hotel Management" <noreply@hotel.test>`, OTPMessage("guest@hotel.test", "111222")))

	assert.True(t, strings.HasPrefix(body, "From: \"Hotel Management\" <noreply@hotel.test>\r\n"))
	assert.Contains(t, body, "Content-Type: multipart/alternative; boundary=frontdesk-alt")
	assert.Contains(t, body, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, body, "Content-Type: text/html; charset=utf-8")
	assert.Equal(t, 2, strings.Count(body, "111222"))
	assert.True(t, strings.HasSuffix(body, "--frontdesk-alt--\r\n"))
}

func TestSMTPMailer_EnvelopeFrom(t *testing.T) {
	m := NewSMTPMailer(" localhost ", 1025, "Hotel Management", "noreply@hotel.test", "", "", false)
	assert.Equal(t, "localhost", m.Host)
	assert.Equal(t, "noreply@hotel.test", m.envelopeFrom())
	assert.Contains(t, m.From, "Hotel Management")
}

func TestSMTPMailer_RejectsEmptyRecipient(t *testing.T) {
	m := NewSMTPMailer("localhost", 1025, "", "noreply@hotel.test", "", "", false)
	assert.Error(t, m.SendOTP(context.Background(), "  ", "123456"))
}

func TestMailerSend_Unconfigured(t *testing.T) {
	err := NewMailerSend("", "Hotel Management", "noreply@hotel.test").SendOTP(context.Background(), "a@hotel.test", "123456")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_PicksTransport(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.EmailConfig
		want interface{}
	}{
		{"dev", config.EmailConfig{DevMode: true, MailerSendKey: "k"}, &DevMailer{}},
		{"mailersend", config.EmailConfig{MailerSendKey: "k", SMTPFrom: "noreply@hotel.test"}, &MailerSendClient{}},
		{"smtp", config.EmailConfig{SMTPHost: "localhost", SMTPPort: 1025}, &SMTPMailer{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.IsType(t, tc.want, New(tc.cfg))
		})
	}
}
