// Package mailer delivers login codes. With SMTP configured it sends a real
// message; otherwise the code is logged so local development works without a
// mail account.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"listencheck.org/internal/config"
	"listencheck.org/internal/obs"
)

// Mailer sends a one-time login code to an address.
type Mailer interface {
	SendLoginCode(ctx context.Context, to, code string) error
}

// sendFunc matches smtp.SendMail; swapped out in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP sends codes through a plain SMTP relay with AUTH.
type SMTP struct {
	host string
	port int
	user string
	pass string
	from string
	send sendFunc
}

// NewSMTP builds an SMTP mailer from configuration.
func NewSMTP(cfg *config.Config) *SMTP {
	return &SMTP{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.SMTPFrom,
		send: smtp.SendMail,
	}
}

func (m *SMTP) SendLoginCode(ctx context.Context, to, code string) error {
	msg := buildMessage(m.from, to, code)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := m.send(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}

// buildMessage renders a multipart/alternative message so clients without
// HTML rendering still show the code.
func buildMessage(from, to, code string) []byte {
	const boundary = "login-code-boundary"
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Your login code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Your login code is %s. It expires in 5 minutes.\r\n", code)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "<p>Your login code is <strong>%s</strong>.</p><p>It expires in 5 minutes.</p>\r\n", code)

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// Console logs the code instead of emailing it. Used when SMTP is not
// configured.
type Console struct{}

func (Console) SendLoginCode(ctx context.Context, to, code string) error {
	obs.Logger().Info("login code issued (smtp not configured)", "to", to, "code", code)
	return nil
}

// FromConfig picks the mailer for the current environment.
func FromConfig(cfg *config.Config) Mailer {
	if cfg.SMTPConfigured() {
		return NewSMTP(cfg)
	}
	return Console{}
}
