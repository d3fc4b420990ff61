package marketplace

import "context"

// Repo is the data access used by Service. Implementations run either on
// the pool or inside a transaction.
type Repo interface {
	InsertJob(ctx context.Context, j *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	// LockJob reads the job and holds a row lock until the transaction ends.
	LockJob(ctx context.Context, id string) (*Job, error)
	UpdateJob(ctx context.Context, j *Job) error
	ListCustomerJobs(ctx context.Context, customerID string, status Status) ([]Job, error)
	ListWorkerJobs(ctx context.Context, workerID string, status Status) ([]Job, error)
	ListAvailableJobs(ctx context.Context, jobType string, limit int) ([]Job, error)
	CountJobsByStatus(ctx context.Context) (map[Status]int, error)

	InsertOffer(ctx context.Context, o *Offer) error
	GetOffer(ctx context.Context, id string) (*Offer, error)
	UpdateOffer(ctx context.Context, o *Offer) error
	ListOffers(ctx context.Context, jobID string) ([]Offer, error)

	AddEvent(ctx context.Context, e *TimelineEvent) error
	ListEvents(ctx context.Context, jobID string) ([]TimelineEvent, error)

	InsertReview(ctx context.Context, r *Review) error
	HasReview(ctx context.Context, jobID, reviewerID string) (bool, error)
	ListJobReviews(ctx context.Context, jobID string) ([]Review, error)
	ListUserReviews(ctx context.Context, userID string, limit, offset int) ([]Review, error)
	RatingSummary(ctx context.Context, userID string) (*RatingSummary, error)

	OpenConversation(ctx context.Context, jobID, customerID, workerID string) (string, error)
	CreditEarnings(ctx context.Context, workerID, jobID string, amount int64) (bool, error)
}

// Store adds transactions to Repo.
type Store interface {
	Repo
	InTx(ctx context.Context, fn func(Repo) error) error
}
