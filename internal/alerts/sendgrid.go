package alerts

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/config"
)

// SendGridMailer delivers through the SendGrid v3 API.
type SendGridMailer struct {
	client  *sendgrid.Client
	from    *mail.Email
	replyTo string
	log     logrus.FieldLogger
}

func NewSendGridMailer(cfg config.Mail, log logrus.FieldLogger) *SendGridMailer {
	return &SendGridMailer{
		client:  sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:    mail.NewEmail("TradeLink", cfg.From),
		replyTo: cfg.ReplyTo,
		log:     log,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, to, subject, body string) error {
	plain, html := body, ""
	if isHTML(body) {
		plain, html = "", body
	}
	msg := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", to), plain, html)
	if m.replyTo != "" {
		msg.SetReplyTo(mail.NewEmail("", m.replyTo))
	}

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send failed: status=%d", resp.StatusCode)
	}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		m.log.WithField("message_id", ids[0]).Debug("sendgrid accepted email")
	}
	return nil
}
