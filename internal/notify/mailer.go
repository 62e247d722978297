package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"kalam-backend/internal/config"

	"github.com/sirupsen/logrus"
)

type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	return &SMTPMailer{
		addr: net.JoinHostPort(cfg.SMTPHost, cfg.SMTPPort),
		from: cfg.SMTPFrom,
		auth: auth,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("invalid mail header")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.from, to, subject, body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes mails to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(to, subject, body string) error {
	logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("mail not sent, SMTP disabled")
	logrus.Debug(body)
	return nil
}

// Deliver renders msg and hands it to the mailer.
func Deliver(m Mailer, msg Message) error {
	subject, body, err := Render(msg)
	if err != nil {
		return err
	}
	return m.Send(msg.To, subject, body)
}

// DirectPublisher delivers synchronously, for deployments without a broker.
type DirectPublisher struct {
	Mailer Mailer
}

func (p DirectPublisher) Publish(_ context.Context, msg Message) error {
	return Deliver(p.Mailer, msg)
}
