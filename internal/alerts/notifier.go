package alerts

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notice is one lifecycle notification for a single user.
type Notice struct {
	UserID string
	Kind   string
	Title  string
	Body   string
	// JobID is stored as the notification reference and linked from emails.
	JobID string
	Email bool
}

// Contacts resolves a user id to a display name and email address.
type Contacts interface {
	Contact(ctx context.Context, userID string) (name, email string, err error)
}

type notificationWriter interface {
	Create(ctx context.Context, n *Notification) error
}

type jobMailer interface {
	EnqueueJobUpdate(ctx context.Context, userID, email, jobID, kind, subject, body string) error
}

// Notifier writes in-app notifications and queues the matching email.
// Failures are logged and never returned to the caller.
type Notifier struct {
	store    notificationWriter
	mail     jobMailer
	contacts Contacts
	log      logrus.FieldLogger
}

func NewNotifier(store notificationWriter, mail jobMailer, contacts Contacts, log logrus.FieldLogger) *Notifier {
	return &Notifier{store: store, mail: mail, contacts: contacts, log: log}
}

func (n *Notifier) Notify(ctx context.Context, notice Notice) {
	entry := n.log.WithFields(logrus.Fields{"instance": "alerts.Notify", "user_id": notice.UserID, "kind": notice.Kind})

	if err := n.store.Create(ctx, &Notification{
		UserID:    notice.UserID,
		Type:      notice.Kind,
		Title:     notice.Title,
		Body:      notice.Body,
		Reference: notice.JobID,
	}); err != nil {
		entry.WithError(err).Warn("notification not stored")
	}

	if !notice.Email || n.mail == nil || n.contacts == nil {
		return
	}
	_, email, err := n.contacts.Contact(ctx, notice.UserID)
	if err != nil || email == "" {
		entry.WithError(err).Warn("no email for notification")
		return
	}
	if err := n.mail.EnqueueJobUpdate(ctx, notice.UserID, email, notice.JobID, notice.Kind, notice.Title, notice.Body); err != nil {
		entry.WithError(err).Warn("email not queued")
	}
}
