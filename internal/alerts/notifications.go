package alerts

import (
	"context"
	"fmt"

	"github.com/sudo-init-do/tradelink/internal/db"
)

// Store persists in-app notifications.
type Store struct {
	q db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// Create inserts a notification item
func (s *Store) Create(ctx context.Context, n *Notification) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, title, body, reference)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, created_at`,
		n.UserID, n.Type, n.Title, n.Body, n.Reference,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns the user's notifications, newest first.
func (s *Store) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id::text, user_id::text, type, title, body, reference, created_at, read_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $3`, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Reference, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// MarkRead reports false when the notification is missing or already read.
func (s *Store) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	tag, err := s.q.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
