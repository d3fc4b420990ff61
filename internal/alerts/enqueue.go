package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// taskQueue is the part of *asynq.Client the enqueuer needs.
type taskQueue interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer renders emails and hands them to asynq.
type Enqueuer struct {
	queue  taskQueue
	appURL string
	resetM int
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewEnqueuer wraps an asynq client. resetMinutes is only used in copy.
func NewEnqueuer(client *asynq.Client, appURL string, resetMinutes int, log logrus.FieldLogger) *Enqueuer {
	return newEnqueuer(client, appURL, resetMinutes, log)
}

func newEnqueuer(q taskQueue, appURL string, resetMinutes int, log logrus.FieldLogger) *Enqueuer {
	return &Enqueuer{queue: q, appURL: appURL, resetM: resetMinutes, log: log, now: time.Now}
}

func (e *Enqueuer) enqueue(ctx context.Context, taskType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", taskType, err)
	}
	info, err := e.queue.EnqueueContext(ctx, asynq.NewTask(taskType, b),
		asynq.Queue(QueueEmails), asynq.MaxRetry(5), asynq.Timeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	if info != nil {
		e.log.WithFields(logrus.Fields{"task": taskType, "task_id": info.ID}).Debug("task enqueued")
	}
	return nil
}

// EnqueueWelcomeEmail schedules a welcome email to the user
func (e *Enqueuer) EnqueueWelcomeEmail(ctx context.Context, userID, email, name string) error {
	env := EmailEnvelope{
		To:      email,
		Subject: fmt.Sprintf("Welcome to TradeLink, %s!", name),
		Body:    fmt.Sprintf("Hi %s, thanks for joining TradeLink.\n\nOpen TradeLink: %s\n", name, e.appURL),
	}
	return e.enqueue(ctx, TaskWelcomeEmail, WelcomeEmailPayload{UserID: userID, Name: name, Envelope: env, SentAt: e.now()})
}

// EnqueueVerifyEmail sends the email confirmation link.
func (e *Enqueuer) EnqueueVerifyEmail(ctx context.Context, userID, email, name, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", e.appURL, url.QueryEscape(token))
	env := EmailEnvelope{
		To:      email,
		Subject: "Confirm your email address",
		Body:    fmt.Sprintf("Hello %s,\n\nPlease confirm your email address by opening the link below:\n%s\n", name, link),
	}
	return e.enqueue(ctx, TaskVerifyEmail, VerifyEmailPayload{UserID: userID, VerifyURL: link, Envelope: env, SentAt: e.now()})
}

// EnqueuePasswordReset schedules a password reset notification
func (e *Enqueuer) EnqueuePasswordReset(ctx context.Context, userID, email, name, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", e.appURL, url.QueryEscape(token))
	env := EmailEnvelope{
		To:      email,
		Subject: "Password reset instructions",
		Body: fmt.Sprintf("Hello %s,\n\nWe received a request to reset your TradeLink password.\n\n"+
			"To proceed, open the link below:\n%s\n\nThis link expires in %d minutes. "+
			"If you did not request this, no action is required.\n", name, link, e.resetM),
	}
	return e.enqueue(ctx, TaskPasswordReset, PasswordResetPayload{UserID: userID, ResetURL: link, Envelope: env, Requested: e.now()})
}

// EnqueueJobUpdate emails a lifecycle notification.
func (e *Enqueuer) EnqueueJobUpdate(ctx context.Context, userID, email, jobID, kind, subject, body string) error {
	env := EmailEnvelope{
		To:      email,
		Subject: subject,
		Body:    fmt.Sprintf("%s\n\nView the job: %s/jobs/%s\n", body, e.appURL, jobID),
	}
	return e.enqueue(ctx, TaskJobUpdate, JobUpdatePayload{UserID: userID, JobID: jobID, Kind: kind, Envelope: env, SentAt: e.now()})
}

// EnqueueMessageNew tells an offline participant about a new message.
func (e *Enqueuer) EnqueueMessageNew(ctx context.Context, conversationID, senderID, recipientID, email, preview string) error {
	env := EmailEnvelope{
		To:      email,
		Subject: "You have a new message",
		Body:    fmt.Sprintf("%s\n\nReply: %s/conversations/%s\n", preview, e.appURL, conversationID),
	}
	return e.enqueue(ctx, TaskMessageNew, MessageNewPayload{
		ConversationID: conversationID, SenderID: senderID, RecipientID: recipientID, Envelope: env, SentAt: e.now(),
	})
}
