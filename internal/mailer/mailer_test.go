package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listencheck.org/internal/config"
)

func TestSMTPSendLoginCode(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := NewSMTP(&config.Config{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		SMTPUser: "relay@example.com",
		SMTPPass: "secret",
		SMTPFrom: "noreply@example.com",
	})
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, m.SendLoginCode(context.Background(), "reviewer@example.com", "482913"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"reviewer@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "482913")
	assert.Contains(t, string(gotMsg), "Subject: Your login code")
	assert.Contains(t, string(gotMsg), "Content-Type: text/plain")
	assert.Contains(t, string(gotMsg), "Content-Type: text/html")
}

func TestSMTPSendLoginCodeError(t *testing.T) {
	m := NewSMTP(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay refused")
	}

	err := m.SendLoginCode(context.Background(), "reviewer@example.com", "482913")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reviewer@example.com")
}

func TestFromConfig(t *testing.T) {
	withSMTP := &config.Config{SMTPHost: "h", SMTPUser: "u", SMTPPass: "p"}
	_, ok := FromConfig(withSMTP).(*SMTP)
	assert.True(t, ok)

	_, ok = FromConfig(&config.Config{}).(Console)
	assert.True(t, ok)
}

func TestConsoleNeverFails(t *testing.T) {
	require.NoError(t, Console{}.SendLoginCode(context.Background(), "reviewer@example.com", "000000"))
}
