package marketplace

import (
	"context"
	"sort"
	"sync"
	"time"
)

var clockBase = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// memStore is an in-memory Store. InTx holds the lock for the whole
// callback and restores a snapshot when it fails.
type memStore struct {
	mu      sync.Mutex
	jobs    map[string]Job
	offers  map[string]Offer
	events  []TimelineEvent
	reviews []Review
	convs   map[string]string
	credits map[string]int64 // "worker/job" -> amount
	seq     int64
	ticks   int
}

// now advances one second per call so orderings are stable.
func (m *memStore) now() time.Time {
	m.ticks++
	return clockBase.Add(time.Duration(m.ticks) * time.Second)
}

func newMemStore() *memStore {
	return &memStore{
		jobs:    map[string]Job{},
		offers:  map[string]Offer{},
		convs:   map[string]string{},
		credits: map[string]int64{},
	}
}

type memRepo struct{ s *memStore }

func (m *memStore) repo() *memRepo { return &memRepo{s: m} }

func (m *memStore) InTx(ctx context.Context, fn func(Repo) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(m.repo()); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) snapshot() *memStore {
	c := newMemStore()
	for k, v := range m.jobs {
		c.jobs[k] = v
	}
	for k, v := range m.offers {
		c.offers[k] = v
	}
	for k, v := range m.convs {
		c.convs[k] = v
	}
	for k, v := range m.credits {
		c.credits[k] = v
	}
	c.events = append([]TimelineEvent(nil), m.events...)
	c.reviews = append([]Review(nil), m.reviews...)
	c.seq = m.seq
	c.ticks = m.ticks
	return c
}

func (m *memStore) restore(c *memStore) {
	m.jobs, m.offers, m.convs, m.credits = c.jobs, c.offers, c.convs, c.credits
	m.events, m.reviews, m.seq = c.events, c.reviews, c.seq
}

// Reads outside a transaction take the lock themselves.
func (m *memStore) locked(fn func(r *memRepo)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.repo())
}

func (m *memStore) InsertJob(ctx context.Context, j *Job) (err error) {
	m.locked(func(r *memRepo) { err = r.InsertJob(ctx, j) })
	return
}
func (m *memStore) GetJob(ctx context.Context, id string) (j *Job, err error) {
	m.locked(func(r *memRepo) { j, err = r.GetJob(ctx, id) })
	return
}
func (m *memStore) LockJob(ctx context.Context, id string) (*Job, error) { return m.GetJob(ctx, id) }
func (m *memStore) UpdateJob(ctx context.Context, j *Job) (err error) {
	m.locked(func(r *memRepo) { err = r.UpdateJob(ctx, j) })
	return
}
func (m *memStore) ListCustomerJobs(ctx context.Context, id string, st Status) (out []Job, err error) {
	m.locked(func(r *memRepo) { out, err = r.ListCustomerJobs(ctx, id, st) })
	return
}
func (m *memStore) ListWorkerJobs(ctx context.Context, id string, st Status) (out []Job, err error) {
	m.locked(func(r *memRepo) { out, err = r.ListWorkerJobs(ctx, id, st) })
	return
}
func (m *memStore) ListAvailableJobs(ctx context.Context, jt string, limit int) (out []Job, err error) {
	m.locked(func(r *memRepo) { out, err = r.ListAvailableJobs(ctx, jt, limit) })
	return
}
func (m *memStore) CountJobsByStatus(ctx context.Context) (out map[Status]int, err error) {
	m.locked(func(r *memRepo) { out, err = r.CountJobsByStatus(ctx) })
	return
}
func (m *memStore) InsertOffer(ctx context.Context, o *Offer) (err error) {
	m.locked(func(r *memRepo) { err = r.InsertOffer(ctx, o) })
	return
}
func (m *memStore) GetOffer(ctx context.Context, id string) (o *Offer, err error) {
	m.locked(func(r *memRepo) { o, err = r.GetOffer(ctx, id) })
	return
}
func (m *memStore) UpdateOffer(ctx context.Context, o *Offer) (err error) {
	m.locked(func(r *memRepo) { err = r.UpdateOffer(ctx, o) })
	return
}
func (m *memStore) ListOffers(ctx context.Context, id string) (out []Offer, err error) {
	m.locked(func(r *memRepo) { out, err = r.ListOffers(ctx, id) })
	return
}
func (m *memStore) AddEvent(ctx context.Context, e *TimelineEvent) (err error) {
	m.locked(func(r *memRepo) { err = r.AddEvent(ctx, e) })
	return
}
func (m *memStore) ListEvents(ctx context.Context, id string) (out []TimelineEvent, err error) {
	m.locked(func(r *memRepo) { out, err = r.ListEvents(ctx, id) })
	return
}
func (m *memStore) InsertReview(ctx context.Context, rv *Review) (err error) {
	m.locked(func(r *memRepo) { err = r.InsertReview(ctx, rv) })
	return
}
func (m *memStore) HasReview(ctx context.Context, jobID, reviewerID string) (ok bool, err error) {
	m.locked(func(r *memRepo) { ok, err = r.HasReview(ctx, jobID, reviewerID) })
	return
}
func (m *memStore) ListJobReviews(ctx context.Context, id string) (out []Review, err error) {
	m.locked(func(r *memRepo) { out, err = r.ListJobReviews(ctx, id) })
	return
}
func (m *memStore) ListUserReviews(ctx context.Context, id string, limit, offset int) (out []Review, err error) {
	m.locked(func(r *memRepo) { out, err = r.ListUserReviews(ctx, id, limit, offset) })
	return
}
func (m *memStore) RatingSummary(ctx context.Context, id string) (out *RatingSummary, err error) {
	m.locked(func(r *memRepo) { out, err = r.RatingSummary(ctx, id) })
	return
}
func (m *memStore) OpenConversation(ctx context.Context, jobID, c, w string) (id string, err error) {
	m.locked(func(r *memRepo) { id, err = r.OpenConversation(ctx, jobID, c, w) })
	return
}
func (m *memStore) CreditEarnings(ctx context.Context, w, j string, amount int64) (ok bool, err error) {
	m.locked(func(r *memRepo) { ok, err = r.CreditEarnings(ctx, w, j, amount) })
	return
}

func (r *memRepo) InsertJob(_ context.Context, j *Job) error {
	j.CreatedAt = r.s.now()
	j.UpdatedAt = j.CreatedAt
	r.s.jobs[j.ID] = *j
	return nil
}

func (r *memRepo) GetJob(_ context.Context, id string) (*Job, error) {
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	j.Images = append([]string{}, j.Images...)
	return &j, nil
}

func (r *memRepo) LockJob(ctx context.Context, id string) (*Job, error) { return r.GetJob(ctx, id) }

func (r *memRepo) UpdateJob(_ context.Context, j *Job) error {
	if _, ok := r.s.jobs[j.ID]; !ok {
		return ErrJobNotFound
	}
	j.UpdatedAt = r.s.now()
	r.s.jobs[j.ID] = *j
	return nil
}

func (r *memRepo) filterJobs(keep func(Job) bool) []Job {
	out := []Job{}
	for _, j := range r.s.jobs {
		if keep(j) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

func (r *memRepo) ListCustomerJobs(_ context.Context, id string, st Status) ([]Job, error) {
	return r.filterJobs(func(j Job) bool { return j.CustomerID == id && (st == "" || j.Status == st) }), nil
}

func (r *memRepo) ListWorkerJobs(_ context.Context, id string, st Status) ([]Job, error) {
	return r.filterJobs(func(j Job) bool { return j.WorkerID == id && (st == "" || j.Status == st) }), nil
}

func (r *memRepo) ListAvailableJobs(_ context.Context, jt string, limit int) ([]Job, error) {
	out := r.filterJobs(func(j Job) bool {
		return (j.Status == StatusOpen || j.Status == StatusPendingOffer) && (jt == "" || j.JobType == jt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) CountJobsByStatus(context.Context) (map[Status]int, error) {
	out := map[Status]int{}
	for _, j := range r.s.jobs {
		out[j.Status]++
	}
	return out, nil
}

func (r *memRepo) InsertOffer(_ context.Context, o *Offer) error {
	for _, e := range r.s.offers {
		if e.JobID == o.JobID && e.WorkerID == o.WorkerID && e.Status == OfferPending {
			return ErrDuplicateOffer
		}
	}
	o.CreatedAt = r.s.now()
	r.s.offers[o.ID] = *o
	return nil
}

func (r *memRepo) GetOffer(_ context.Context, id string) (*Offer, error) {
	o, ok := r.s.offers[id]
	if !ok {
		return nil, ErrOfferNotFound
	}
	return &o, nil
}

func (r *memRepo) UpdateOffer(_ context.Context, o *Offer) error {
	if _, ok := r.s.offers[o.ID]; !ok {
		return ErrOfferNotFound
	}
	if o.Status == OfferAccepted {
		for _, e := range r.s.offers {
			if e.JobID == o.JobID && e.ID != o.ID && e.Status == OfferAccepted {
				return ErrInvalidTransition
			}
		}
	}
	r.s.offers[o.ID] = *o
	return nil
}

func (r *memRepo) ListOffers(_ context.Context, jobID string) ([]Offer, error) {
	out := []Offer{}
	for _, o := range r.s.offers {
		if o.JobID == jobID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (r *memRepo) AddEvent(_ context.Context, e *TimelineEvent) error {
	r.s.seq++
	e.ID = r.s.seq
	r.s.events = append(r.s.events, *e)
	return nil
}

func (r *memRepo) ListEvents(_ context.Context, jobID string) ([]TimelineEvent, error) {
	out := []TimelineEvent{}
	for _, e := range r.s.events {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) InsertReview(_ context.Context, rv *Review) error {
	for _, e := range r.s.reviews {
		if e.JobID == rv.JobID && e.ReviewerID == rv.ReviewerID {
			return ErrReviewExists
		}
	}
	rv.CreatedAt = r.s.now()
	r.s.reviews = append(r.s.reviews, *rv)
	return nil
}

func (r *memRepo) HasReview(_ context.Context, jobID, reviewerID string) (bool, error) {
	for _, e := range r.s.reviews {
		if e.JobID == jobID && e.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) ListJobReviews(_ context.Context, jobID string) ([]Review, error) {
	out := []Review{}
	for _, e := range r.s.reviews {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) ListUserReviews(_ context.Context, userID string, limit, offset int) ([]Review, error) {
	out := []Review{}
	for _, e := range r.s.reviews {
		if e.RevieweeID == userID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return []Review{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) RatingSummary(_ context.Context, userID string) (*RatingSummary, error) {
	s := &RatingSummary{UserID: userID}
	sum := 0
	for _, e := range r.s.reviews {
		if e.RevieweeID == userID {
			s.add(e.Rating, 1)
			s.TotalReviews++
			sum += e.Rating
		}
	}
	if s.TotalReviews > 0 {
		s.AverageRating = roundRating(float64(sum) / float64(s.TotalReviews))
	}
	return s, nil
}

func (r *memRepo) OpenConversation(_ context.Context, jobID, _, _ string) (string, error) {
	if id, ok := r.s.convs[jobID]; ok {
		return id, nil
	}
	id := "conv-" + jobID
	r.s.convs[jobID] = id
	return id, nil
}

func (r *memRepo) CreditEarnings(_ context.Context, workerID, jobID string, amount int64) (bool, error) {
	key := workerID + "/" + jobID
	if _, ok := r.s.credits[key]; ok || amount <= 0 {
		return false, nil
	}
	r.s.credits[key] = amount
	return true, nil
}
