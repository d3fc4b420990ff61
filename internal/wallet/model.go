package wallet

import "time"

// Transaction statuses.
const (
	StatusJobEarning = "job_earning"
)

type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the worker dashboard earnings card.
type Summary struct {
	Balance         int64  `json:"balance"`
	TotalEarned     int64  `json:"total_earned"`
	PendingPayments int64  `json:"pending_payments"`
	CompletedJobs   int    `json:"completed_jobs"`
	Currency        string `json:"currency"`
}
