package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/alerts"
	"github.com/sudo-init-do/tradelink/internal/events"
	"github.com/sudo-init-do/tradelink/internal/pricing"
	"github.com/sudo-init-do/tradelink/internal/user"
	"github.com/sudo-init-do/tradelink/internal/wallet"
	"github.com/sudo-init-do/tradelink/internal/worker"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// WorkerDirectory is the part of the worker service the marketplace needs.
type WorkerDirectory interface {
	GetProfile(ctx context.Context, userID string) (*worker.Profile, error)
	RecordRating(ctx context.Context, userID string, average float64, count int) error
}

type notifier interface {
	Notify(ctx context.Context, n alerts.Notice)
}

type Service struct {
	store   Store
	workers WorkerDirectory
	notify  notifier
	events  events.Publisher
	log     logrus.FieldLogger
	now     func() time.Time
	newRef  func() (string, error)
}

func NewService(store Store, workers WorkerDirectory, notify notifier, pub events.Publisher, log logrus.FieldLogger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:   store,
		workers: workers,
		notify:  notify,
		events:  pub,
		log:     log,
		now:     time.Now,
		newRef:  newReference,
	}
}

func newReference() (string, error) {
	id, err := gonanoid.Generate(referenceAlphabet, 8)
	if err != nil {
		return "", err
	}
	return "JOB-" + id, nil
}

func roundRating(v float64) float64 {
	return math.Round(v*100) / 100
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func normalizeInput(in JobInput) JobInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	if strings.TrimSpace(in.JobType) != "" {
		in.JobType = pricing.NormalizeJobType(in.JobType)
	}
	return in
}

// validatePublishable is the full check applied before a job is visible
// to workers.
func validatePublishable(j *Job) error {
	switch {
	case j.Title == "":
		return invalid("title is required")
	case j.Description == "":
		return invalid("description is required")
	case j.Budget <= 0:
		return invalid("budget must be greater than 0")
	case j.Location == "":
		return invalid("location is required")
	case !pricing.KnownJobType(j.JobType):
		return invalid("job_type must be one of [" + strings.Join(pricing.JobTypes(), " ") + "]")
	}
	return nil
}

func (s *Service) applyInput(j *Job, in JobInput) {
	in = normalizeInput(in)
	j.Title = in.Title
	j.Description = in.Description
	j.Budget = in.Budget
	j.Location = in.Location
	j.JobType = in.JobType
	j.Images = in.Images
	if j.Images == nil {
		j.Images = []string{}
	}
}

func (s *Service) event(ctx context.Context, r Repo, jobID, typ, actorID, detail string) error {
	return r.AddEvent(ctx, &TimelineEvent{
		JobID:     jobID,
		Type:      typ,
		ActorID:   actorID,
		Detail:    detail,
		CreatedAt: s.now().UTC(),
	})
}

// moveTo applies a state machine edge to a locked job.
func moveTo(j *Job, to Status) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	return nil
}

// publishStatus emits a job.status.* event after commit. Failures are
// logged only.
func (s *Service) publishStatus(ctx context.Context, j *Job, from Status, actorID string) {
	err := s.events.PublishJobStatus(ctx, events.JobStatusEvent{
		JobID:      j.ID,
		Reference:  j.Reference,
		CustomerID: j.CustomerID,
		WorkerID:   j.WorkerID,
		From:       string(from),
		To:         string(j.Status),
		ActorID:    actorID,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"job_id": j.ID, "to": j.Status}).Warn("job status event not published")
	}
}

func (s *Service) tell(ctx context.Context, userID, kind, title, body, jobID string) {
	if s.notify == nil || userID == "" {
		return
	}
	s.notify.Notify(ctx, alerts.Notice{UserID: userID, Kind: kind, Title: title, Body: body, JobID: jobID, Email: true})
}

// SaveDraft stores an incomplete job. Only the title is required.
func (s *Service) SaveDraft(ctx context.Context, customerID string, in JobInput) (*Job, error) {
	j := &Job{ID: uuid.New().String(), CustomerID: customerID, Status: StatusDraft}
	s.applyInput(j, in)
	if j.Title == "" {
		return nil, invalid("title is required")
	}
	if err := s.insertJob(ctx, j, EventDraftSaved); err != nil {
		return nil, err
	}
	j.Completion = pricing.CompletionPercent(j.draft())
	return j, nil
}

// CreateJob validates fully and creates the job directly in open.
func (s *Service) CreateJob(ctx context.Context, customerID string, in JobInput) (*Job, error) {
	j := &Job{ID: uuid.New().String(), CustomerID: customerID, Status: StatusOpen}
	s.applyInput(j, in)
	if err := validatePublishable(j); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	j.PublishedAt = &now
	if err := s.insertJob(ctx, j, EventPosted); err != nil {
		return nil, err
	}
	s.publishStatus(ctx, j, "", customerID)
	return j, nil
}

func (s *Service) insertJob(ctx context.Context, j *Job, eventType string) error {
	ref, err := s.newRef()
	if err != nil {
		return fmt.Errorf("job reference: %w", err)
	}
	j.Reference = ref
	return s.store.InTx(ctx, func(r Repo) error {
		if err := r.InsertJob(ctx, j); err != nil {
			return err
		}
		return s.event(ctx, r, j.ID, eventType, j.CustomerID, "")
	})
}

// UpdateDraft replaces the draft's fields. Published jobs are immutable.
func (s *Service) UpdateDraft(ctx context.Context, customerID, jobID string, in JobInput) (*Job, error) {
	var j *Job
	err := s.store.InTx(ctx, func(r Repo) error {
		var err error
		j, err = r.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		if j.CustomerID != customerID {
			return ErrForbidden
		}
		if j.Status != StatusDraft {
			return fmt.Errorf("%w: only drafts can be edited", ErrInvalidTransition)
		}
		s.applyInput(j, in)
		if j.Title == "" {
			return invalid("title is required")
		}
		return r.UpdateJob(ctx, j)
	})
	if err != nil {
		return nil, err
	}
	j.Completion = pricing.CompletionPercent(j.draft())
	return j, nil
}

// PublishJob moves a complete draft to open.
func (s *Service) PublishJob(ctx context.Context, customerID, jobID string) (*Job, error) {
	var j *Job
	err := s.store.InTx(ctx, func(r Repo) error {
		var err error
		j, err = r.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		if j.CustomerID != customerID {
			return ErrForbidden
		}
		if err := validatePublishable(j); err != nil {
			return err
		}
		if err := moveTo(j, StatusOpen); err != nil {
			return err
		}
		now := s.now().UTC()
		j.PublishedAt = &now
		if err := r.UpdateJob(ctx, j); err != nil {
			return err
		}
		return s.event(ctx, r, j.ID, EventPosted, customerID, "")
	})
	if err != nil {
		return nil, err
	}
	s.publishStatus(ctx, j, StatusDraft, customerID)
	return j, nil
}

// GetJob returns the job to its customer, its assigned worker, admins,
// and to any worker while the job is still taking offers.
func (s *Service) GetJob(ctx context.Context, userID, role, jobID string) (*Job, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	visible := j.participant(userID) || role == user.RoleAdmin ||
		(role == user.RoleWorker && j.Status.acceptsOffers())
	if !visible {
		return nil, ErrForbidden
	}
	if err := s.decorate(ctx, j, userID); err != nil {
		return nil, err
	}
	return j, nil
}

// decorate fills the derived fields. RatingGiven is from the viewer's side.
func (s *Service) decorate(ctx context.Context, j *Job, viewerID string) error {
	switch j.Status {
	case StatusDraft:
		j.Completion = pricing.CompletionPercent(j.draft())
	case StatusCompleted:
		given, err := s.store.HasReview(ctx, j.ID, viewerID)
		if err != nil {
			return err
		}
		j.RatingGiven = given
	}
	return nil
}

// ListCustomerJobs lists the customer's jobs, newest first. An empty
// status lists all of them.
func (s *Service) ListCustomerJobs(ctx context.Context, customerID string, status Status) ([]Job, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status " + string(status))
	}
	jobs, err := s.store.ListCustomerJobs(ctx, customerID, status)
	if err != nil {
		return nil, err
	}
	return s.decorateAll(ctx, jobs, customerID)
}

// ListWorkerJobs lists jobs assigned to the worker, most recently touched
// first, with the same status filter as ListCustomerJobs.
func (s *Service) ListWorkerJobs(ctx context.Context, workerID string, status Status) ([]Job, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status " + string(status))
	}
	jobs, err := s.store.ListWorkerJobs(ctx, workerID, status)
	if err != nil {
		return nil, err
	}
	return s.decorateAll(ctx, jobs, workerID)
}

func (s *Service) decorateAll(ctx context.Context, jobs []Job, viewerID string) ([]Job, error) {
	for i := range jobs {
		if err := s.decorate(ctx, &jobs[i], viewerID); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

// ListAvailableJobs lists jobs still taking offers. An empty trade falls
// back to the worker's own trade; "all" disables the filter.
func (s *Service) ListAvailableJobs(ctx context.Context, workerID, trade string) ([]AvailableJob, error) {
	jobType := ""
	switch strings.ToLower(strings.TrimSpace(trade)) {
	case "all":
	case "":
		p, err := s.workers.GetProfile(ctx, workerID)
		switch {
		case errors.Is(err, worker.ErrProfileNotFound):
		case err != nil:
			return nil, err
		default:
			jobType = p.Trade
		}
	default:
		jobType = pricing.NormalizeJobType(trade)
	}

	jobs, err := s.store.ListAvailableJobs(ctx, jobType, 100)
	if err != nil {
		return nil, err
	}
	out := make([]AvailableJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, AvailableJob{
			Job:       j,
			Match:     pricing.MatchLabel(j.JobType, j.Budget),
			Suggested: pricing.Suggest(j.JobType),
		})
	}
	return out, nil
}

// WithdrawJob lets the customer pull an open job.
func (s *Service) WithdrawJob(ctx context.Context, customerID, jobID string) (*Job, error) {
	var j *Job
	err := s.store.InTx(ctx, func(r Repo) error {
		var err error
		j, err = r.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		if j.CustomerID != customerID {
			return ErrForbidden
		}
		if j.Status != StatusOpen {
			return fmt.Errorf("%w: only open jobs can be withdrawn", ErrInvalidTransition)
		}
		if err := moveTo(j, StatusDeclined); err != nil {
			return err
		}
		if err := r.UpdateJob(ctx, j); err != nil {
			return err
		}
		return s.event(ctx, r, j.ID, EventWithdrawn, customerID, "")
	})
	if err != nil {
		return nil, err
	}
	s.publishStatus(ctx, j, StatusOpen, customerID)
	return j, nil
}

// eligible checks that the worker may receive or make an offer.
func (s *Service) eligible(ctx context.Context, workerID string) (*worker.Profile, error) {
	p, err := s.workers.GetProfile(ctx, workerID)
	if errors.Is(err, worker.ErrProfileNotFound) {
		return nil, ErrWorkerNotVerified
	}
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrWorkerSuspended
	}
	if !p.Verified {
		return nil, ErrWorkerNotVerified
	}
	if p.Availability != worker.Available {
		return nil, ErrWorkerBusy
	}
	return p, nil
}

func (s *Service) createOffer(ctx context.Context, actorID string, o *Offer) (*Job, Status, error) {
	var j *Job
	var from Status
	err := s.store.InTx(ctx, func(r Repo) error {
		var err error
		j, err = r.LockJob(ctx, o.JobID)
		if err != nil {
			return err
		}
		if j.CustomerID == o.WorkerID {
			return ErrOwnJob
		}
		if o.ProposedBy == ProposedByCustomer && j.CustomerID != actorID {
			return ErrForbidden
		}
		if !j.Status.acceptsOffers() {
			return fmt.Errorf("%w: job is %s", ErrInvalidTransition, j.Status)
		}

		offers, err := r.ListOffers(ctx, j.ID)
		if err != nil {
			return err
		}
		for _, existing := range offers {
			if existing.WorkerID == o.WorkerID && existing.Status == OfferPending {
				return ErrDuplicateOffer
			}
		}

		if err := r.InsertOffer(ctx, o); err != nil {
			return err
		}
		from = j.Status
		if j.Status == StatusOpen {
			if err := moveTo(j, StatusPendingOffer); err != nil {
				return err
			}
			if err := r.UpdateJob(ctx, j); err != nil {
				return err
			}
		}
		typ := EventOfferSubmitted
		if o.ProposedBy == ProposedByCustomer {
			typ = EventWorkerInvited
		}
		return s.event(ctx, r, j.ID, typ, actorID, o.ID)
	})
	return j, from, err
}

// SubmitOffer places a worker's bid on a job.
func (s *Service) SubmitOffer(ctx context.Context, workerID, jobID string, amount int64, message string) (*Offer, error) {
	entry := s.log.WithFields(logrus.Fields{"instance": "marketplace.SubmitOffer", "job_id": jobID, "worker_id": workerID})
	if amount < 0 {
		return nil, invalid("amount must not be negative")
	}
	if _, err := s.eligible(ctx, workerID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	o := &Offer{
		ID:         uuid.New().String(),
		JobID:      jobID,
		WorkerID:   workerID,
		ProposedBy: ProposedByWorker,
		Amount:     amount,
		Message:    strings.TrimSpace(message),
		Status:     OfferPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	j, from, err := s.createOffer(ctx, workerID, o)
	if err != nil {
		return nil, err
	}
	entry.WithField("offer_id", o.ID).Info("offer submitted")

	if from != j.Status {
		s.publishStatus(ctx, j, from, workerID)
	}
	s.tell(ctx, j.CustomerID, alerts.KindOfferReceived, "New offer on "+j.Title,
		fmt.Sprintf("A worker offered %d %s for %s.", offerAmount(o, j), pricing.Currency, j.Reference), j.ID)
	return o, nil
}

// InviteWorker creates a customer-proposed offer the worker can accept.
func (s *Service) InviteWorker(ctx context.Context, customerID, jobID, workerID string, amount int64, message string) (*Offer, error) {
	if amount < 0 {
		return nil, invalid("amount must not be negative")
	}
	if workerID == customerID {
		return nil, ErrOwnJob
	}
	if _, err := s.eligible(ctx, workerID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	o := &Offer{
		ID:         uuid.New().String(),
		JobID:      jobID,
		WorkerID:   workerID,
		ProposedBy: ProposedByCustomer,
		Amount:     amount,
		Message:    strings.TrimSpace(message),
		Status:     OfferPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	j, from, err := s.createOffer(ctx, customerID, o)
	if err != nil {
		return nil, err
	}
	if from != j.Status {
		s.publishStatus(ctx, j, from, customerID)
	}
	s.tell(ctx, workerID, alerts.KindInvited, "You were invited to "+j.Title,
		fmt.Sprintf("A customer invited you to job %s in %s.", j.Reference, j.Location), j.ID)
	return o, nil
}

func offerAmount(o *Offer, j *Job) int64 {
	return wallet.Payout(o.Amount, j.Budget)
}

// counterparty is the user who has to answer the offer.
func counterparty(o *Offer, j *Job) string {
	if o.ProposedBy == ProposedByCustomer {
		return o.WorkerID
	}
	return j.CustomerID
}

// AcceptOffer is confirmed by the side that did not propose the offer.
// The job row is locked so at most one offer per job is ever accepted.
func (s *Service) AcceptOffer(ctx context.Context, userID, offerID string) (*AcceptResult, error) {
	entry := s.log.WithFields(logrus.Fields{"instance": "marketplace.AcceptOffer", "offer_id": offerID, "user_id": userID})

	o, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.eligible(ctx, o.WorkerID); err != nil {
		return nil, err
	}

	res := &AcceptResult{}
	var declined []Offer
	err = s.store.InTx(ctx, func(r Repo) error {
		j, err := r.LockJob(ctx, o.JobID)
		if err != nil {
			return err
		}
		// re-read under the job lock
		o, err = r.GetOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if counterparty(o, j) != userID {
			return ErrForbidden
		}
		if o.Status != OfferPending {
			return ErrOfferNotPending
		}
		if err := moveTo(j, StatusInProgress); err != nil {
			return err
		}

		now := s.now().UTC()
		offers, err := r.ListOffers(ctx, j.ID)
		if err != nil {
			return err
		}
		for _, other := range offers {
			if other.ID == o.ID || other.Status != OfferPending {
				continue
			}
			other.Status = OfferDeclined
			other.RespondedAt = &now
			if err := r.UpdateOffer(ctx, &other); err != nil {
				return err
			}
			declined = append(declined, other)
		}

		o.Status = OfferAccepted
		o.RespondedAt = &now
		if err := r.UpdateOffer(ctx, o); err != nil {
			return err
		}

		j.WorkerID = o.WorkerID
		if err := r.UpdateJob(ctx, j); err != nil {
			return err
		}

		convID, err := r.OpenConversation(ctx, j.ID, j.CustomerID, j.WorkerID)
		if err != nil {
			return err
		}
		if err := s.event(ctx, r, j.ID, EventOfferAccepted, userID, o.ID); err != nil {
			return err
		}
		if err := s.event(ctx, r, j.ID, EventInProgress, userID, ""); err != nil {
			return err
		}
		res.Job, res.Offer, res.ConversationID = j, o, convID
		return nil
	})
	if err != nil {
		return nil, err
	}
	entry.WithFields(logrus.Fields{"job_id": res.Job.ID, "declined": len(declined)}).Info("offer accepted")

	s.publishStatus(ctx, res.Job, StatusPendingOffer, userID)
	j := res.Job
	proposer := j.CustomerID
	if o.ProposedBy == ProposedByWorker {
		proposer = o.WorkerID
	}
	s.tell(ctx, proposer, alerts.KindOfferAccepted, "Offer accepted: "+j.Title,
		fmt.Sprintf("Job %s is now in progress.", j.Reference), j.ID)
	for _, d := range declined {
		s.tell(ctx, d.WorkerID, alerts.KindOfferDeclined, "Offer declined: "+j.Title,
			fmt.Sprintf("Job %s was assigned to another worker.", j.Reference), j.ID)
	}
	return res, nil
}

// DeclineOffer can be called by the job's customer or the offer's
// worker. Declining the last pending offer declines the job.
func (s *Service) DeclineOffer(ctx context.Context, userID, offerID string) (*Offer, error) {
	o, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	var j *Job
	var from Status
	err = s.store.InTx(ctx, func(r Repo) error {
		var err error
		j, err = r.LockJob(ctx, o.JobID)
		if err != nil {
			return err
		}
		o, err = r.GetOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if userID != j.CustomerID && userID != o.WorkerID {
			return ErrForbidden
		}
		if o.Status != OfferPending {
			return ErrOfferNotPending
		}

		now := s.now().UTC()
		o.Status = OfferDeclined
		o.RespondedAt = &now
		if err := r.UpdateOffer(ctx, o); err != nil {
			return err
		}
		if err := s.event(ctx, r, j.ID, EventOfferDeclined, userID, o.ID); err != nil {
			return err
		}

		from = j.Status
		offers, err := r.ListOffers(ctx, j.ID)
		if err != nil {
			return err
		}
		for _, other := range offers {
			if other.Status == OfferPending {
				return nil
			}
		}
		if j.Status != StatusPendingOffer {
			return nil
		}
		if err := moveTo(j, StatusDeclined); err != nil {
			return err
		}
		if err := r.UpdateJob(ctx, j); err != nil {
			return err
		}
		return s.event(ctx, r, j.ID, EventDeclined, userID, "")
	})
	if err != nil {
		return nil, err
	}

	if from != j.Status {
		s.publishStatus(ctx, j, from, userID)
	}
	other := o.WorkerID
	if userID == o.WorkerID {
		other = j.CustomerID
	}
	s.tell(ctx, other, alerts.KindOfferDeclined, "Offer declined: "+j.Title,
		fmt.Sprintf("An offer on %s was declined.", j.Reference), j.ID)
	return o, nil
}

// ListOffers shows the customer every offer and a worker only its own.
func (s *Service) ListOffers(ctx context.Context, userID, jobID string) ([]Offer, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	offers, err := s.store.ListOffers(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.CustomerID == userID {
		return offers, nil
	}
	own := []Offer{}
	for _, o := range offers {
		if o.WorkerID == userID {
			own = append(own, o)
		}
	}
	return own, nil
}

// ConfirmCompletion records the caller's confirmation. The second
// confirmation completes the job and credits the worker.
func (s *Service) ConfirmCompletion(ctx context.Context, userID, jobID string) (*Job, error) {
	entry := s.log.WithFields(logrus.Fields{"instance": "marketplace.ConfirmCompletion", "job_id": jobID, "user_id": userID})

	var j *Job
	var credited bool
	err := s.store.InTx(ctx, func(r Repo) error {
		var err error
		j, err = r.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		if !j.participant(userID) {
			return ErrForbidden
		}
		if j.Status != StatusInProgress {
			return fmt.Errorf("%w: job is %s", ErrInvalidTransition, j.Status)
		}

		now := s.now().UTC()
		switch userID {
		case j.CustomerID:
			if j.CustomerConfirmedAt != nil {
				return ErrAlreadyConfirmed
			}
			j.CustomerConfirmedAt = &now
		case j.WorkerID:
			if j.WorkerConfirmedAt != nil {
				return ErrAlreadyConfirmed
			}
			j.WorkerConfirmedAt = &now
		}
		if err := s.event(ctx, r, j.ID, EventCompletionConfirmed, userID, ""); err != nil {
			return err
		}

		if j.CustomerConfirmedAt != nil && j.WorkerConfirmedAt != nil {
			if err := moveTo(j, StatusCompleted); err != nil {
				return err
			}
			j.CompletedAt = &now
			amount, err := acceptedAmount(ctx, r, j)
			if err != nil {
				return err
			}
			credited, err = r.CreditEarnings(ctx, j.WorkerID, j.ID, amount)
			if err != nil {
				return err
			}
			if err := s.event(ctx, r, j.ID, EventCompleted, userID, ""); err != nil {
				return err
			}
		}
		return r.UpdateJob(ctx, j)
	})
	if err != nil {
		return nil, err
	}

	if j.Status != StatusCompleted {
		other := j.WorkerID
		if userID == j.WorkerID {
			other = j.CustomerID
		}
		s.tell(ctx, other, alerts.KindCompletionAsk, "Confirm completion: "+j.Title,
			fmt.Sprintf("The other party marked %s as done. Confirm to complete the job.", j.Reference), j.ID)
		return j, nil
	}

	entry.WithField("credited", credited).Info("job completed")
	s.publishStatus(ctx, j, StatusInProgress, userID)
	for _, uid := range []string{j.CustomerID, j.WorkerID} {
		s.tell(ctx, uid, alerts.KindJobCompleted, "Job completed: "+j.Title,
			fmt.Sprintf("Job %s is complete. You can now leave a review.", j.Reference), j.ID)
	}
	return j, nil
}

func acceptedAmount(ctx context.Context, r Repo, j *Job) (int64, error) {
	offers, err := r.ListOffers(ctx, j.ID)
	if err != nil {
		return 0, err
	}
	for i := range offers {
		if offers[i].Status == OfferAccepted {
			return offerAmount(&offers[i], j), nil
		}
	}
	return j.Budget, nil
}

// CreateReview lets each participant review the other once the job is
// completed.
func (s *Service) CreateReview(ctx context.Context, reviewerID, jobID string, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, invalid("rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if len([]rune(comment)) > 1000 {
		return nil, invalid("comment must be at most 1000 characters")
	}

	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !j.participant(reviewerID) {
		return nil, ErrForbidden
	}
	if j.Status != StatusCompleted {
		return nil, ErrJobNotCompleted
	}

	rv := &Review{
		ID:         uuid.New().String(),
		JobID:      j.ID,
		ReviewerID: reviewerID,
		RevieweeID: j.WorkerID,
		Rating:     rating,
		Comment:    comment,
	}
	if reviewerID == j.WorkerID {
		rv.RevieweeID = j.CustomerID
	}

	err = s.store.InTx(ctx, func(r Repo) error {
		exists, err := r.HasReview(ctx, j.ID, reviewerID)
		if err != nil {
			return err
		}
		if exists {
			return ErrReviewExists
		}
		if err := r.InsertReview(ctx, rv); err != nil {
			return err
		}
		return s.event(ctx, r, j.ID, EventReviewed, reviewerID, fmt.Sprintf("%d", rating))
	})
	if err != nil {
		return nil, err
	}

	if rv.RevieweeID == j.WorkerID {
		s.refreshWorkerRating(ctx, j.WorkerID)
	}
	s.tell(ctx, rv.RevieweeID, alerts.KindReviewReceived, "New review",
		fmt.Sprintf("You received a %d-star review for %s.", rating, j.Reference), j.ID)
	return rv, nil
}

func (s *Service) refreshWorkerRating(ctx context.Context, workerID string) {
	entry := s.log.WithFields(logrus.Fields{"instance": "marketplace.refreshWorkerRating", "worker_id": workerID})
	sum, err := s.store.RatingSummary(ctx, workerID)
	if err != nil {
		entry.WithError(err).Warn("rating summary failed")
		return
	}
	if err := s.workers.RecordRating(ctx, workerID, sum.AverageRating, sum.TotalReviews); err != nil {
		entry.WithError(err).Warn("worker rating not recorded")
	}
}

func (s *Service) ListJobReviews(ctx context.Context, jobID string) ([]Review, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.ListJobReviews(ctx, jobID)
}

// ListUserReviews returns one page of reviews received by the user and
// the overall summary.
func (s *Service) ListUserReviews(ctx context.Context, userID string, page, limit int) ([]Review, *RatingSummary, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	sum, err := s.store.RatingSummary(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	reviews, err := s.store.ListUserReviews(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, nil, err
	}
	return reviews, sum, nil
}

// Timeline lists the job's events in the order they happened.
func (s *Service) Timeline(ctx context.Context, userID, role, jobID string) ([]TimelineEvent, error) {
	j, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !j.participant(userID) && role != user.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.store.ListEvents(ctx, jobID)
}

// Stats counts jobs per status for the admin dashboard.
func (s *Service) Stats(ctx context.Context) (map[Status]int, error) {
	return s.store.CountJobsByStatus(ctx)
}
