package marketplace

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/tradelink/internal/db"
	"github.com/sudo-init-do/tradelink/internal/messaging"
	"github.com/sudo-init-do/tradelink/internal/wallet"
)

type pgRepo struct {
	q db.Querier
}

// PGStore is the Postgres Store.
type PGStore struct {
	pgRepo
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pgRepo: pgRepo{q: pool}, pool: pool}
}

func (s *PGStore) InTx(ctx context.Context, fn func(Repo) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgRepo{q: tx})
	})
}

const jobColumns = `id::text, reference, customer_id::text, COALESCE(worker_id::text, ''), title, description,
	budget, location, job_type, status, images, customer_confirmed_at, worker_confirmed_at,
	published_at, completed_at, created_at, updated_at`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.Reference, &j.CustomerID, &j.WorkerID, &j.Title, &j.Description,
		&j.Budget, &j.Location, &j.JobType, &j.Status, &j.Images, &j.CustomerConfirmedAt, &j.WorkerConfirmedAt,
		&j.PublishedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func collectJobs(rows pgx.Rows, err error) ([]Job, error) {
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	out := []Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func (r *pgRepo) InsertJob(ctx context.Context, j *Job) error {
	if j.Images == nil {
		j.Images = []string{}
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO jobs (id, reference, customer_id, title, description, budget, location, job_type, status, images, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		j.ID, j.Reference, j.CustomerID, j.Title, j.Description, j.Budget, j.Location, j.JobType, j.Status, j.Images, j.PublishedAt,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if db.IsUniqueViolation(err, "jobs_reference_key") {
		return fmt.Errorf("insert job: duplicate reference %s: %w", j.Reference, err)
	}
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *pgRepo) getJob(ctx context.Context, id, suffix string) (*Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrJobNotFound
	}
	j, err := scanJob(r.q.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`+suffix, id))
	if db.IsNoRows(err) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (r *pgRepo) GetJob(ctx context.Context, id string) (*Job, error) {
	return r.getJob(ctx, id, "")
}

func (r *pgRepo) LockJob(ctx context.Context, id string) (*Job, error) {
	return r.getJob(ctx, id, " FOR UPDATE")
}

func (r *pgRepo) UpdateJob(ctx context.Context, j *Job) error {
	if j.Images == nil {
		j.Images = []string{}
	}
	err := r.q.QueryRow(ctx, `
		UPDATE jobs SET worker_id = $2, title = $3, description = $4, budget = $5, location = $6,
			job_type = $7, status = $8, images = $9, customer_confirmed_at = $10, worker_confirmed_at = $11,
			published_at = $12, completed_at = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		j.ID, nullable(j.WorkerID), j.Title, j.Description, j.Budget, j.Location,
		j.JobType, j.Status, j.Images, j.CustomerConfirmedAt, j.WorkerConfirmedAt,
		j.PublishedAt, j.CompletedAt,
	).Scan(&j.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *pgRepo) ListCustomerJobs(ctx context.Context, customerID string, status Status) ([]Job, error) {
	return collectJobs(r.q.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE customer_id = $1 AND ($2::text = '' OR status = $2)
		ORDER BY created_at DESC`, customerID, string(status)))
}

func (r *pgRepo) ListWorkerJobs(ctx context.Context, workerID string, status Status) ([]Job, error) {
	return collectJobs(r.q.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE worker_id = $1 AND ($2::text = '' OR status = $2)
		ORDER BY updated_at DESC`, workerID, string(status)))
}

func (r *pgRepo) ListAvailableJobs(ctx context.Context, jobType string, limit int) ([]Job, error) {
	return collectJobs(r.q.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status IN ('open', 'pending-offer') AND ($1::text = '' OR job_type = $1)
		ORDER BY created_at DESC
		LIMIT $2`, jobType, limit))
}

func (r *pgRepo) CountJobsByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.q.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()
	out := map[Status]int{}
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		out[s] = n
	}
	return out, rows.Err()
}

const offerColumns = `o.id::text, o.job_id::text, o.worker_id::text, u.name, o.proposed_by, o.amount, o.message,
	o.status, o.responded_at, o.created_at, o.updated_at`

func scanOffer(row pgx.Row) (*Offer, error) {
	var o Offer
	err := row.Scan(&o.ID, &o.JobID, &o.WorkerID, &o.WorkerName, &o.ProposedBy, &o.Amount, &o.Message,
		&o.Status, &o.RespondedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *pgRepo) InsertOffer(ctx context.Context, o *Offer) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO offers (id, job_id, worker_id, proposed_by, amount, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		o.ID, o.JobID, o.WorkerID, o.ProposedBy, o.Amount, o.Message, o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if db.IsUniqueViolation(err, "offers_one_pending_per_worker") {
		return ErrDuplicateOffer
	}
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

func (r *pgRepo) GetOffer(ctx context.Context, id string) (*Offer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOfferNotFound
	}
	o, err := scanOffer(r.q.QueryRow(ctx, `
		SELECT `+offerColumns+` FROM offers o JOIN users u ON u.id = o.worker_id
		WHERE o.id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

func (r *pgRepo) UpdateOffer(ctx context.Context, o *Offer) error {
	err := r.q.QueryRow(ctx, `
		UPDATE offers SET status = $2, responded_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`, o.ID, o.Status, o.RespondedAt,
	).Scan(&o.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrOfferNotFound
	}
	if db.IsUniqueViolation(err, "offers_one_accepted_per_job") {
		return fmt.Errorf("%w: job already has an accepted offer", ErrInvalidTransition)
	}
	if err != nil {
		return fmt.Errorf("update offer: %w", err)
	}
	return nil
}

func (r *pgRepo) ListOffers(ctx context.Context, jobID string) ([]Offer, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+offerColumns+` FROM offers o JOIN users u ON u.id = o.worker_id
		WHERE o.job_id = $1
		ORDER BY o.created_at ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()
	out := []Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *pgRepo) AddEvent(ctx context.Context, e *TimelineEvent) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO job_events (job_id, type, actor_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, e.JobID, e.Type, nullable(e.ActorID), e.Detail, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("add job event: %w", err)
	}
	return nil
}

func (r *pgRepo) ListEvents(ctx context.Context, jobID string) ([]TimelineEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, job_id::text, type, COALESCE(actor_id::text, ''), detail, created_at
		FROM job_events WHERE job_id = $1
		ORDER BY created_at ASC, id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job events: %w", err)
	}
	defer rows.Close()
	out := []TimelineEvent{}
	for rows.Next() {
		var e TimelineEvent
		if err := rows.Scan(&e.ID, &e.JobID, &e.Type, &e.ActorID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *pgRepo) InsertReview(ctx context.Context, rv *Review) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO reviews (id, job_id, reviewer_id, reviewee_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		rv.ID, rv.JobID, rv.ReviewerID, rv.RevieweeID, rv.Rating, rv.Comment,
	).Scan(&rv.CreatedAt)
	if db.IsUniqueViolation(err, "reviews_job_reviewer_key") {
		return ErrReviewExists
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *pgRepo) HasReview(ctx context.Context, jobID, reviewerID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM reviews WHERE job_id = $1 AND reviewer_id = $2)`,
		jobID, reviewerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check review: %w", err)
	}
	return exists, nil
}

const reviewColumns = `r.id::text, r.job_id::text, r.reviewer_id::text, u.name, r.reviewee_id::text, r.rating, r.comment, r.created_at`

func (r *pgRepo) listReviews(ctx context.Context, where string, args ...any) ([]Review, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews r JOIN users u ON u.id = r.reviewer_id
		WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()
	out := []Review{}
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.JobID, &rv.ReviewerID, &rv.ReviewerName, &rv.RevieweeID,
			&rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *pgRepo) ListJobReviews(ctx context.Context, jobID string) ([]Review, error) {
	return r.listReviews(ctx, `r.job_id = $1 ORDER BY r.created_at ASC`, jobID)
}

func (r *pgRepo) ListUserReviews(ctx context.Context, userID string, limit, offset int) ([]Review, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []Review{}, nil
	}
	return r.listReviews(ctx, `r.reviewee_id = $1 ORDER BY r.created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
}

func (r *pgRepo) RatingSummary(ctx context.Context, userID string) (*RatingSummary, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return &RatingSummary{UserID: userID}, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT rating, COUNT(*) FROM reviews WHERE reviewee_id = $1 GROUP BY rating`, userID)
	if err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	defer rows.Close()

	s := &RatingSummary{UserID: userID}
	sum := 0
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		s.add(rating, count)
		s.TotalReviews += count
		sum += rating * count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if s.TotalReviews > 0 {
		s.AverageRating = roundRating(float64(sum) / float64(s.TotalReviews))
	}
	return s, nil
}

func (r *pgRepo) OpenConversation(ctx context.Context, jobID, customerID, workerID string) (string, error) {
	return messaging.OpenConversation(ctx, r.q, jobID, customerID, workerID)
}

func (r *pgRepo) CreditEarnings(ctx context.Context, workerID, jobID string, amount int64) (bool, error) {
	return wallet.CreditEarnings(ctx, r.q, workerID, jobID, amount)
}
