package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Processor handles email tasks in the worker binary.
type Processor struct {
	mailer Mailer
	log    logrus.FieldLogger
}

func NewProcessor(mailer Mailer, log logrus.FieldLogger) *Processor {
	return &Processor{mailer: mailer, log: log}
}

// Mux registers a handler per task type.
func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, p.handleWelcomeEmail)
	mux.HandleFunc(TaskVerifyEmail, p.handleVerifyEmail)
	mux.HandleFunc(TaskPasswordReset, p.handlePasswordReset)
	mux.HandleFunc(TaskJobUpdate, p.handleJobUpdate)
	mux.HandleFunc(TaskMessageNew, p.handleMessageNew)
	return mux
}

// NewServer builds the asynq server with the queues this service uses.
func NewServer(opt asynq.RedisConnOpt, log logrus.FieldLogger) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueEmails: 10,
			QueueAlerts: 5,
		},
		Logger:   log.WithField("component", "asynq"),
		LogLevel: asynq.InfoLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.WithError(err).WithField("task", task.Type()).Error("task failed")
		}),
	})
}

func (p *Processor) deliver(ctx context.Context, task string, env EmailEnvelope, fields logrus.Fields) error {
	if env.To == "" {
		// nothing to retry
		return fmt.Errorf("%s: missing recipient: %w", task, asynq.SkipRetry)
	}
	if err := p.mailer.Send(ctx, env.To, env.Subject, env.Body); err != nil {
		p.log.WithError(err).WithFields(fields).WithField("task", task).Error("email send failed")
		return err
	}
	p.log.WithFields(fields).WithFields(logrus.Fields{"task": task, "to": env.To}).Info("email sent")
	return nil
}

func decode(t *asynq.Task, v any) error {
	if err := json.Unmarshal(t.Payload(), v); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

func (p *Processor) handleWelcomeEmail(ctx context.Context, t *asynq.Task) error {
	var pl WelcomeEmailPayload
	if err := decode(t, &pl); err != nil {
		return err
	}
	return p.deliver(ctx, t.Type(), pl.Envelope, logrus.Fields{"user_id": pl.UserID})
}

func (p *Processor) handleVerifyEmail(ctx context.Context, t *asynq.Task) error {
	var pl VerifyEmailPayload
	if err := decode(t, &pl); err != nil {
		return err
	}
	return p.deliver(ctx, t.Type(), pl.Envelope, logrus.Fields{"user_id": pl.UserID})
}

func (p *Processor) handlePasswordReset(ctx context.Context, t *asynq.Task) error {
	var pl PasswordResetPayload
	if err := decode(t, &pl); err != nil {
		return err
	}
	return p.deliver(ctx, t.Type(), pl.Envelope, logrus.Fields{"user_id": pl.UserID})
}

func (p *Processor) handleJobUpdate(ctx context.Context, t *asynq.Task) error {
	var pl JobUpdatePayload
	if err := decode(t, &pl); err != nil {
		return err
	}
	return p.deliver(ctx, t.Type(), pl.Envelope, logrus.Fields{"user_id": pl.UserID, "job_id": pl.JobID, "kind": pl.Kind})
}

func (p *Processor) handleMessageNew(ctx context.Context, t *asynq.Task) error {
	var pl MessageNewPayload
	if err := decode(t, &pl); err != nil {
		return err
	}
	return p.deliver(ctx, t.Type(), pl.Envelope, logrus.Fields{"conversation_id": pl.ConversationID, "recipient_id": pl.RecipientID})
}
