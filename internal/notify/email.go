// Package notify builds and delivers the daily report email.
package notify

import (
	"crypto/tls"
	"fmt"
	"mime"
	"net/smtp"

	"github.com/minghuang/etfdca/pkg/logger"
)

// Mailer delivers one plain-text message.
type Mailer interface {
	Send(subject, body string) error
}

// SMTPMailer sends over SMTP with implicit TLS on the configured port.
// QQ mail and most Chinese providers expect 465 with SSL.
type SMTPMailer struct {
	host     string
	port     int
	user     string
	password string
	to       string
	log      *logger.Logger
}

// NewSMTPMailer creates a mailer. Credentials come from the environment
// config, the host and port from the strategy file.
func NewSMTPMailer(host string, port int, user, password, to string, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		to:       to,
		log:      log.WithField("component", "notify"),
	}
}

// Send delivers the message to the configured recipient.
func (m *SMTPMailer) Send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.host})
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}
	if err := client.Mail(m.user); err != nil {
		return fmt.Errorf("SMTP MAIL failed: %w", err)
	}
	if err := client.Rcpt(m.to); err != nil {
		return fmt.Errorf("SMTP RCPT failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA failed: %w", err)
	}
	if _, err := w.Write(buildMessage(m.user, m.to, subject, body)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("SMTP QUIT failed: %w", err)
	}

	m.log.WithField("to", m.to).Info("Report email sent")
	return nil
}

// buildMessage assembles RFC 5322 headers plus a UTF-8 body. The subject is
// word-encoded so Chinese text survives every relay.
func buildMessage(from, to, subject, body string) []byte {
	encoded := mime.QEncoding.Encode("utf-8", subject)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from, to, encoded, body)
	return []byte(msg)
}

// NopMailer discards messages. Used when email is disabled or credentials
// are absent.
type NopMailer struct{}

func (NopMailer) Send(string, string) error { return nil }
