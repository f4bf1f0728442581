package email

import (
	"errors"
	"io"
	"net/smtp"
	"testing"

	"github.com/Dan9191/spending-insights/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(cfg *config.Config) (*Sender, *[]*email.Email, *[]string) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := NewSender(cfg, log)
	var sent []*email.Email
	var addrs []string
	s.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		sent = append(sent, e)
		addrs = append(addrs, addr)
		return nil
	}
	return s, &sent, &addrs
}

func TestRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, Recipients(" a@x.io, ,b@x.io "))
	assert.Empty(t, Recipients(""))
}

func TestSend(t *testing.T) {
	cfg := &config.Config{
		SMTPHost:    "smtp.example.com",
		SMTPPort:    "2525",
		SenderEmail: "insights@example.com",
		DigestTo:    "me@example.com,you@example.com",
	}
	s, sent, addrs := newTestSender(cfg)

	require.NoError(t, s.Send("Spending anomalies", "body text"))
	require.Len(t, *sent, 1)
	msg := (*sent)[0]
	assert.Equal(t, "insights@example.com", msg.From)
	assert.Equal(t, []string{"me@example.com", "you@example.com"}, msg.To)
	assert.Equal(t, "Spending anomalies", msg.Subject)
	assert.Equal(t, "body text", string(msg.Text))
	assert.Equal(t, []string{"smtp.example.com:2525"}, *addrs)
}

func TestSend_Errors(t *testing.T) {
	s, sent, _ := newTestSender(&config.Config{SMTPHost: "smtp.example.com"})
	assert.Error(t, s.Send("subject", "body"))
	assert.Empty(t, *sent)

	s, _, _ = newTestSender(&config.Config{SMTPHost: "smtp.example.com", DigestTo: "me@example.com"})
	s.send = func(e *email.Email, addr string, auth smtp.Auth) error { return errors.New("connection refused") }
	err := s.Send("subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
