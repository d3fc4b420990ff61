package messaging

import (
	"errors"
	"net/http"
	"time"
)

// Message kinds.
const (
	KindText  = "text"
	KindImage = "image"
	KindFile  = "file"
)

type Conversation struct {
	ID            string     `json:"id"`
	JobID         string     `json:"job_id"`
	JobTitle      string     `json:"job_title,omitempty"`
	CustomerID    string     `json:"customer_id"`
	WorkerID      string     `json:"worker_id"`
	LastMessageAt *time.Time `json:"last_message_at"`
	Unread        int        `json:"unread"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Counterparty returns the other participant, or "" when userID is not
// part of the conversation.
func (c *Conversation) Counterparty(userID string) string {
	switch userID {
	case c.CustomerID:
		return c.WorkerID
	case c.WorkerID:
		return c.CustomerID
	}
	return ""
}

type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	RecipientID    string     `json:"recipient_id"`
	Kind           string     `json:"kind"`
	Content        string     `json:"content"`
	AttachmentURL  string     `json:"attachment_url,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at"`
}

// Event types pushed over the conversation websocket.
const (
	EventMessageNew    = "message_new"
	EventMessageRead   = "message_read"
	EventPresenceJoin  = "presence_join"
	EventPresenceLeave = "presence_leave"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotParticipant       = errors.New("not a participant in this conversation")
	ErrNotRecipient         = errors.New("not the recipient")
	ErrInvalidMessage       = errors.New("invalid message")
)

// StatusCode maps messaging errors to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrConversationNotFound), errors.Is(err, ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotParticipant), errors.Is(err, ErrNotRecipient):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidMessage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
