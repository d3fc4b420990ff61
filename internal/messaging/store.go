package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/tradelink/internal/db"
)

// OpenConversation creates the job's conversation, or returns the existing
// one. It takes a Querier so offer acceptance can run it on its own
// transaction.
func OpenConversation(ctx context.Context, q db.Querier, jobID, customerID, workerID string) (string, error) {
	var id string
	err := q.QueryRow(ctx, `
		INSERT INTO conversations (id, job_id, customer_id, worker_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id) DO UPDATE SET worker_id = EXCLUDED.worker_id
		RETURNING id::text`,
		uuid.New().String(), jobID, customerID, workerID,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("open conversation: %w", err)
	}
	return id, nil
}

// Store persists conversations and messages.
type Store interface {
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	InsertMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID string, since *time.Time, limit int) ([]Message, error)
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
	MarkRead(ctx context.Context, conversationID, messageID, userID string, at time.Time) (*Message, error)
}

type PGStore struct {
	q db.Querier
}

func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{q: q}
}

func (s *PGStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrConversationNotFound
	}
	var c Conversation
	err := s.q.QueryRow(ctx, `
		SELECT c.id::text, c.job_id::text, j.title, c.customer_id::text, c.worker_id::text, c.last_message_at, c.created_at
		FROM conversations c JOIN jobs j ON j.id = c.job_id
		WHERE c.id = $1`, id,
	).Scan(&c.ID, &c.JobID, &c.JobTitle, &c.CustomerID, &c.WorkerID, &c.LastMessageAt, &c.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

func (s *PGStore) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.q.Query(ctx, `
		SELECT c.id::text, c.job_id::text, j.title, c.customer_id::text, c.worker_id::text, c.last_message_at, c.created_at,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.conversation_id = c.id AND m.recipient_id = $1 AND m.read_at IS NULL)
		FROM conversations c JOIN jobs j ON j.id = c.job_id
		WHERE c.customer_id = $1 OR c.worker_id = $1
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.JobID, &c.JobTitle, &c.CustomerID, &c.WorkerID, &c.LastMessageAt, &c.CreatedAt, &c.Unread); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) InsertMessage(ctx context.Context, m *Message) error {
	err := s.q.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO messages (id, conversation_id, sender_id, recipient_id, kind, content, attachment_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at
		), touched AS (
			UPDATE conversations SET last_message_at = $8 WHERE id = $2
		)
		SELECT created_at FROM inserted`,
		m.ID, m.ConversationID, m.SenderID, m.RecipientID, m.Kind, m.Content, m.AttachmentURL, m.CreatedAt,
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

const messageColumns = `id::text, conversation_id::text, sender_id::text, recipient_id::text, kind, content, attachment_url, created_at, read_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.RecipientID, &m.Kind, &m.Content, &m.AttachmentURL, &m.CreatedAt, &m.ReadAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PGStore) ListMessages(ctx context.Context, conversationID string, since *time.Time, limit int) ([]Message, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = $1 AND ($2::timestamptz IS NULL OR created_at > $2)
		ORDER BY created_at ASC
		LIMIT $3`, conversationID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *PGStore) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	var n int
	err := s.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = $1 AND recipient_id = $2 AND read_at IS NULL`, conversationID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

// MarkRead sets read_at once; re-reading keeps the first timestamp.
func (s *PGStore) MarkRead(ctx context.Context, conversationID, messageID, userID string, at time.Time) (*Message, error) {
	if _, err := uuid.Parse(messageID); err != nil {
		return nil, ErrMessageNotFound
	}
	m, err := scanMessage(s.q.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1 AND conversation_id = $2`,
		messageID, conversationID))
	if db.IsNoRows(err) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if m.RecipientID != userID {
		return nil, ErrNotRecipient
	}
	if m.ReadAt != nil {
		return m, nil
	}

	if _, err := s.q.Exec(ctx, `UPDATE messages SET read_at = $1 WHERE id = $2 AND read_at IS NULL`, at, messageID); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	m.ReadAt = &at
	return m, nil
}
