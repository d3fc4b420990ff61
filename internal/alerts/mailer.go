package alerts

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/config"
)

// Mailer delivers one rendered email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer picks the delivery backend named by MAIL_PROVIDER.
func NewMailer(cfg config.Mail, log logrus.FieldLogger) (Mailer, error) {
	switch cfg.Provider {
	case "smtp":
		if cfg.SMTPHost == "" || cfg.SMTPPort == "" || cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
			return nil, fmt.Errorf("smtp not configured: set SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD")
		}
		return &SMTPMailer{cfg: cfg}, nil
	case "plunk":
		if cfg.PlunkAPIKey == "" {
			return nil, fmt.Errorf("plunk not configured: set PLUNK_API_KEY")
		}
		return NewPlunkMailer(cfg, nil, log), nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" || cfg.From == "" {
			return nil, fmt.Errorf("sendgrid not configured: set SENDGRID_API_KEY and MAIL_FROM")
		}
		return NewSendGridMailer(cfg, log), nil
	default:
		return &LogMailer{log: log}, nil
	}
}

// LogMailer writes emails to the log. Used in development.
type LogMailer struct {
	log logrus.FieldLogger
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info(body)
	return nil
}

// SMTPMailer sends a plain text or HTML email using SMTP with TLS.
type SMTPMailer struct {
	cfg config.Mail
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	addr := m.cfg.SMTPHost + ":" + m.cfg.SMTPPort
	msg := buildMessage(m.cfg.From, m.cfg.ReplyTo, to, subject, body)

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: m.cfg.SMTPHost}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, m.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	auth := smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return c.Quit()
}

func buildMessage(from, replyTo, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	if replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", replyTo)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	contentType := "text/plain"
	if isHTML(body) {
		contentType = "text/html"
	}
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"utf-8\"\r\n", contentType)
	b.WriteString("\r\n" + body + "\r\n")
	return b.String()
}

func isHTML(body string) bool {
	lb := strings.ToLower(body)
	return strings.Contains(lb, "<html") || strings.Contains(lb, "<body") || strings.Contains(lb, "<!doctype html")
}
