package notification

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/model"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailNotifier sends block notices by e-mail.
type EmailNotifier struct {
	cfg      config.SMTPConfig
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier creates a new EmailNotifier, or returns nil when no SMTP
// host is configured.
func NewEmailNotifier(cfg config.SMTPConfig) model.Notifier {
	if cfg.Host == "" {
		return nil
	}
	// PlainAuth will not send credentials until the server identifies itself as a trusted one.
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	return &EmailNotifier{cfg: cfg, auth: auth, sendMail: smtp.SendMail}
}

// Message builds the RFC 5322 message for subject and an HTML body.
func (n *EmailNotifier) Message(subject, body string) []byte {
	return []byte("To: " + n.cfg.To + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		body)
}

// Send sends an email to the configured recipients.
func (n *EmailNotifier) Send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var recipients []string
	for _, r := range strings.Split(n.cfg.To, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no e-mail recipients configured")
	}

	if err := n.sendMail(addr, n.auth, n.cfg.From, recipients, n.Message(subject, body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
