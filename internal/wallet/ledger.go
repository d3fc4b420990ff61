package wallet

import (
	"context"
	"fmt"

	"github.com/sudo-init-do/tradelink/internal/db"
	"github.com/sudo-init-do/tradelink/internal/pricing"
)

// Payout is what a worker is owed for a job: the accepted offer's amount,
// or the job budget when the offer named none.
func Payout(offerAmount, budget int64) int64 {
	if offerAmount > 0 {
		return offerAmount
	}
	return budget
}

// CreditEarnings records a job payout for the worker and bumps the wallet
// balance. It runs on the caller's transaction and is idempotent per
// (worker, job): a second call reports false and changes nothing.
func CreditEarnings(ctx context.Context, q db.Querier, workerID, jobID string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, nil
	}
	tag, err := q.Exec(ctx, `
		INSERT INTO transactions (user_id, amount, type, status, reference)
		VALUES ($1, $2, 'credit', $3, $4)
		ON CONFLICT (user_id, reference) WHERE status = 'job_earning' DO NOTHING`,
		workerID, amount, StatusJobEarning, jobID)
	if err != nil {
		return false, fmt.Errorf("insert earning: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = q.Exec(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()`,
		workerID, amount)
	if err != nil {
		return false, fmt.Errorf("credit wallet: %w", err)
	}
	return true, nil
}

// Store reads ledger data.
type Store struct {
	q db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// Summary totals completed earnings and the value of in-progress jobs.
func (s *Store) Summary(ctx context.Context, userID string) (*Summary, error) {
	sum := &Summary{Currency: pricing.Currency}
	err := s.q.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT balance FROM wallets WHERE user_id = $1), 0),
			COALESCE((SELECT SUM(amount) FROM transactions WHERE user_id = $1 AND status = 'job_earning'), 0),
			(SELECT COUNT(*) FROM jobs WHERE worker_id = $1 AND status = 'completed')`,
		userID,
	).Scan(&sum.Balance, &sum.TotalEarned, &sum.CompletedJobs)
	if err != nil {
		return nil, fmt.Errorf("earnings summary: %w", err)
	}

	pending, err := s.pendingJobs(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum.PendingPayments = pendingTotal(pending)
	return sum, nil
}

type pendingJob struct {
	offerAmount int64
	budget      int64
}

// pendingTotal values in-progress jobs the same way completion credits
// them.
func pendingTotal(jobs []pendingJob) int64 {
	var total int64
	for _, j := range jobs {
		total += Payout(j.offerAmount, j.budget)
	}
	return total
}

func (s *Store) pendingJobs(ctx context.Context, userID string) ([]pendingJob, error) {
	rows, err := s.q.Query(ctx, `
		SELECT COALESCE(o.amount, 0), j.budget
		FROM jobs j
		LEFT JOIN offers o ON o.job_id = j.id AND o.status = 'accepted'
		WHERE j.worker_id = $1 AND j.status = 'in-progress'`, userID)
	if err != nil {
		return nil, fmt.Errorf("pending jobs: %w", err)
	}
	defer rows.Close()

	var out []pendingJob
	for rows.Next() {
		var p pendingJob
		if err := rows.Scan(&p.offerAmount, &p.budget); err != nil {
			return nil, fmt.Errorf("scan pending job: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Transactions returns the user's ledger, newest first.
func (s *Store) Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.q.Query(ctx, `
		SELECT id::text, user_id::text, type, amount, status, COALESCE(reference::text, ''), created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Reference, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
