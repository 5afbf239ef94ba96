package mailer

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"portfolio-api/internal/config"
)

// Mailer sends confirmation and notification emails over SMTP. It is
// optional: with no host or sender configured every send becomes a logged
// no-op, mirroring the rest of the request path staying fully functional
// without email.
type Mailer struct {
	cfg  config.MailConfig
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// New constructs a mailer from configuration.
func New(cfg config.MailConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// Enabled reports whether outbound mail is configured.
func (m *Mailer) Enabled() bool {
	return strings.TrimSpace(m.cfg.Host) != "" && strings.TrimSpace(m.cfg.From) != ""
}

// OwnerAddress returns the configured notification recipient, if any.
func (m *Mailer) OwnerAddress() string {
	return m.cfg.To
}

// Send delivers a plain-text message synchronously.
func (m *Mailer) Send(to, subject, body string) error {
	if !m.Enabled() {
		slog.Info("mail not configured, skipping send", "to", to, "subject", subject)
		return nil
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := buildMessage(m.cfg.From, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// SendAsync delivers the message in a detached goroutine. Failure is logged
// and never propagates: a secondary effect must not fail the primary request.
func (m *Mailer) SendAsync(to, subject, body string) {
	go func() {
		if err := m.Send(to, subject, body); err != nil {
			slog.Error("background mail send failed", "to", to, "subject", subject, "err", err)
		}
	}()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
