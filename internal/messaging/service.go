package messaging

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/alerts"
)

const maxContentLength = 4000

// Broadcaster pushes events to the websocket clients of a conversation.
type Broadcaster interface {
	Publish(ctx context.Context, room string, evt Event)
}

type presence interface {
	Online(room, userID string) bool
}

type notifier interface {
	Notify(ctx context.Context, n alerts.Notice)
}

type messageMailer interface {
	EnqueueMessageNew(ctx context.Context, conversationID, senderID, recipientID, email, preview string) error
}

type Service struct {
	store    Store
	fanout   Broadcaster
	presence presence
	notify   notifier
	mail     messageMailer
	contacts alerts.Contacts
	log      logrus.FieldLogger
	now      func() time.Time
}

type Deps struct {
	Fanout   Broadcaster
	Presence presence
	Notify   notifier
	Mail     messageMailer
	Contacts alerts.Contacts
}

func NewService(store Store, deps Deps, log logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		fanout:   deps.Fanout,
		presence: deps.Presence,
		notify:   deps.Notify,
		mail:     deps.Mail,
		contacts: deps.Contacts,
		log:      log,
		now:      time.Now,
	}
}

// GetConversation returns the conversation when userID participates.
func (s *Service) GetConversation(ctx context.Context, userID, id string) (*Conversation, error) {
	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Counterparty(userID) == "" {
		return nil, ErrNotParticipant
	}
	return c, nil
}

func (s *Service) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	return s.store.ListConversations(ctx, userID)
}

func validateMessage(kind, content, attachmentURL string) error {
	switch kind {
	case KindText:
		if strings.TrimSpace(content) == "" {
			return fmt.Errorf("%w: content is required", ErrInvalidMessage)
		}
	case KindImage, KindFile:
		u, err := url.Parse(attachmentURL)
		if attachmentURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: attachment_url must be an http(s) URL", ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: kind must be one of [text image file]", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return fmt.Errorf("%w: content must be at most %d characters", ErrInvalidMessage, maxContentLength)
	}
	return nil
}

// SendMessage stores the message, pushes it to connected clients and
// notifies the recipient.
func (s *Service) SendMessage(ctx context.Context, userID, conversationID, kind, content, attachmentURL string) (*Message, error) {
	if kind == "" {
		kind = KindText
	}
	if err := validateMessage(kind, content, attachmentURL); err != nil {
		return nil, err
	}
	conv, err := s.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	m := &Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       userID,
		RecipientID:    conv.Counterparty(userID),
		Kind:           kind,
		Content:        strings.TrimSpace(content),
		AttachmentURL:  attachmentURL,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.InsertMessage(ctx, m); err != nil {
		return nil, err
	}

	s.fanout.Publish(ctx, conv.ID, Event{Type: EventMessageNew, Data: m})
	s.notifyRecipient(ctx, conv, m)
	return m, nil
}

func (s *Service) notifyRecipient(ctx context.Context, conv *Conversation, m *Message) {
	preview := m.Content
	if m.Kind != KindText {
		preview = "Sent you a " + m.Kind
	}
	if utf8.RuneCountInString(preview) > 140 {
		preview = string([]rune(preview)[:140]) + "…"
	}

	if s.notify != nil {
		s.notify.Notify(ctx, alerts.Notice{
			UserID: m.RecipientID,
			Kind:   alerts.KindMessage,
			Title:  "New message",
			Body:   preview,
			JobID:  conv.JobID,
		})
	}

	if s.mail == nil || s.contacts == nil {
		return
	}
	if s.presence != nil && s.presence.Online(conv.ID, m.RecipientID) {
		return
	}
	_, email, err := s.contacts.Contact(ctx, m.RecipientID)
	if err != nil || email == "" {
		return
	}
	if err := s.mail.EnqueueMessageNew(ctx, conv.ID, m.SenderID, m.RecipientID, email, preview); err != nil {
		s.log.WithError(err).WithField("conversation_id", conv.ID).Warn("message email not queued")
	}
}

// ListMessages returns messages oldest first, optionally only those
// created after since.
func (s *Service) ListMessages(ctx context.Context, userID, conversationID string, since *time.Time, limit int) ([]Message, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID, since, limit)
}

func (s *Service) UnreadCount(ctx context.Context, userID, conversationID string) (int, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return 0, err
	}
	return s.store.UnreadCount(ctx, conversationID, userID)
}

// MarkRead is only allowed for the message's recipient.
func (s *Service) MarkRead(ctx context.Context, userID, conversationID, messageID string) (*Message, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	m, err := s.store.MarkRead(ctx, conversationID, messageID, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.fanout.Publish(ctx, conversationID, Event{Type: EventMessageRead, Data: map[string]any{
		"message_id":      m.ID,
		"conversation_id": conversationID,
		"user_id":         userID,
		"read_at":         m.ReadAt,
	}})
	return m, nil
}

// Presence broadcasts a join or leave for the websocket handler.
func (s *Service) Presence(ctx context.Context, conversationID, userID, eventType string) {
	s.fanout.Publish(ctx, conversationID, Event{Type: eventType, Data: map[string]string{"user_id": userID}})
}
