package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go-automation/internal/config"

	"go.uber.org/zap"
)

type Mailer interface {
	SendEmail(ctx context.Context, to []string, subject, body string) error
}

type SMTPMailer struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Logger   *zap.Logger

	// send is smtp.SendMail; tests replace it.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg *config.Config, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Logger:   logger,
		send:     smtp.SendMail,
	}
}

func (m *SMTPMailer) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if m.Host == "" || m.Port == 0 {
		return errors.New("invalid email configuration: missing host or port")
	}
	if len(to) == 0 {
		return errors.New("no recipients")
	}

	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Password, m.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	from := m.From
	if from == "" {
		from = m.User
	}

	m.Logger.Debug("Sending email", zap.Strings("to", to), zap.String("addr", addr))
	if err := m.send(addr, auth, from, to, buildMessage(from, to, subject, body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.NewReplacer("\r", "", "\n", "").Replace(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
