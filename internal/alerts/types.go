package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail  = "email:welcome"
	TaskVerifyEmail   = "email:verify"
	TaskPasswordReset = "email:password_reset"
	TaskJobUpdate     = "email:job_update"
	TaskMessageNew    = "email:message_new"
)

// Queue names served by the worker binary.
const (
	QueueEmails = "emails"
	QueueAlerts = "alerts"
)

// EmailEnvelope is the rendered message every task carries.
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

type VerifyEmailPayload struct {
	UserID    string        `json:"user_id"`
	VerifyURL string        `json:"verify_url"`
	Envelope  EmailEnvelope `json:"envelope"`
	SentAt    time.Time     `json:"sent_at"`
}

type PasswordResetPayload struct {
	UserID    string        `json:"user_id"`
	ResetURL  string        `json:"reset_url"`
	Envelope  EmailEnvelope `json:"envelope"`
	Requested time.Time     `json:"requested"`
}

// JobUpdatePayload covers offer, acceptance, decline and completion mails.
type JobUpdatePayload struct {
	UserID   string        `json:"user_id"`
	JobID    string        `json:"job_id"`
	Kind     string        `json:"kind"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

type MessageNewPayload struct {
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	RecipientID    string        `json:"recipient_id"`
	Envelope       EmailEnvelope `json:"envelope"`
	SentAt         time.Time     `json:"sent_at"`
}

// Notification kinds stored in the notifications table.
const (
	KindOfferReceived  = "offer_received"
	KindInvited        = "job_invitation"
	KindOfferAccepted  = "offer_accepted"
	KindOfferDeclined  = "offer_declined"
	KindJobCompleted   = "job_completed"
	KindCompletionAsk  = "completion_requested"
	KindReviewReceived = "review_received"
	KindVerification   = "verification_update"
	KindMessage        = "message_new"
)

// Notification is an in-app notification row.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"-"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Reference string     `json:"reference"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`
}
