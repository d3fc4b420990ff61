package marketplace

import (
	"time"

	"github.com/sudo-init-do/tradelink/internal/pricing"
)

// Who proposed an offer. The other side confirms it.
const (
	ProposedByWorker   = "worker"
	ProposedByCustomer = "customer"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferDeclined OfferStatus = "declined"
)

// Job is a customer's request for work.
type Job struct {
	ID          string   `json:"id"`
	Reference   string   `json:"reference"`
	CustomerID  string   `json:"customer_id"`
	WorkerID    string   `json:"worker_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Budget      int64    `json:"budget"`
	Location    string   `json:"location"`
	JobType     string   `json:"job_type"`
	Status      Status   `json:"status"`
	Images      []string `json:"images"`

	CustomerConfirmedAt *time.Time `json:"customer_confirmed_at,omitempty"`
	WorkerConfirmedAt   *time.Time `json:"worker_confirmed_at,omitempty"`
	PublishedAt         *time.Time `json:"published_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	// Filled on reads.
	RatingGiven bool `json:"rating_given"`
	Completion  int  `json:"completion,omitempty"`
}

func (j *Job) participant(userID string) bool {
	return userID != "" && (userID == j.CustomerID || userID == j.WorkerID)
}

func (j *Job) draft() pricing.Draft {
	return pricing.Draft{
		Title:       j.Title,
		Description: j.Description,
		Budget:      j.Budget,
		Location:    j.Location,
		JobType:     j.JobType,
	}
}

// JobInput is the editable part of a job.
type JobInput struct {
	Title       string   `json:"title" validate:"max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Budget      int64    `json:"budget" validate:"gte=0"`
	Location    string   `json:"location" validate:"max=200"`
	JobType     string   `json:"job_type" validate:"max=60"`
	Images      []string `json:"images" validate:"max=10,dive,url"`
}

// AvailableJob is a job as listed to workers.
type AvailableJob struct {
	Job
	Match     string        `json:"match"`
	Suggested pricing.Range `json:"suggested"`
}

type Offer struct {
	ID          string      `json:"id"`
	JobID       string      `json:"job_id"`
	WorkerID    string      `json:"worker_id"`
	WorkerName  string      `json:"worker_name,omitempty"`
	ProposedBy  string      `json:"proposed_by"`
	Amount      int64       `json:"amount"`
	Message     string      `json:"message"`
	Status      OfferStatus `json:"status"`
	RespondedAt *time.Time  `json:"responded_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// AcceptResult is returned when an offer is accepted.
type AcceptResult struct {
	Job            *Job   `json:"job"`
	Offer          *Offer `json:"offer"`
	ConversationID string `json:"conversation_id"`
}

type Review struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	ReviewerID   string    `json:"reviewer_id"`
	ReviewerName string    `json:"reviewer_name,omitempty"`
	RevieweeID   string    `json:"reviewee_id"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

// RatingSummary aggregates the reviews a user has received.
type RatingSummary struct {
	UserID        string  `json:"user_id"`
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	RatingCounts  struct {
		FiveStar  int `json:"five_star"`
		FourStar  int `json:"four_star"`
		ThreeStar int `json:"three_star"`
		TwoStar   int `json:"two_star"`
		OneStar   int `json:"one_star"`
	} `json:"rating_counts"`
}

func (s *RatingSummary) add(rating, count int) {
	switch rating {
	case 5:
		s.RatingCounts.FiveStar += count
	case 4:
		s.RatingCounts.FourStar += count
	case 3:
		s.RatingCounts.ThreeStar += count
	case 2:
		s.RatingCounts.TwoStar += count
	case 1:
		s.RatingCounts.OneStar += count
	}
}

// Timeline event types.
const (
	EventDraftSaved          = "draft_saved"
	EventPosted              = "posted"
	EventOfferSubmitted      = "offer_submitted"
	EventWorkerInvited       = "worker_invited"
	EventOfferAccepted       = "offer_accepted"
	EventOfferDeclined       = "offer_declined"
	EventInProgress          = "in_progress"
	EventCompletionConfirmed = "completion_confirmed"
	EventCompleted           = "completed"
	EventWithdrawn           = "withdrawn"
	EventDeclined            = "declined"
	EventReviewed            = "reviewed"
)

type TimelineEvent struct {
	ID        int64     `json:"id"`
	JobID     string    `json:"job_id"`
	Type      string    `json:"type"`
	ActorID   string    `json:"actor_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
