package dispatch

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMTPMailer(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	m := &SMTPMailer{Host: "smtp.example.com", Port: 587, User: "bot@example.com", Logger: zap.NewNop()}
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	require.NoError(t, m.SendEmail(context.Background(), []string{"ada@example.com"}, "Hello\r\nBcc: x", "<p>Hi</p>"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: HelloBcc: x\r\n")
	assert.Contains(t, gotMsg, "<p>Hi</p>")
}

func TestSMTPMailerRequiresHost(t *testing.T) {
	m := &SMTPMailer{Logger: zap.NewNop()}
	assert.Error(t, m.SendEmail(context.Background(), []string{"a@example.com"}, "s", "b"))
}
