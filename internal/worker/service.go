package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/alerts"
	"github.com/sudo-init-do/tradelink/internal/pricing"
)

// Store persists worker profiles and documents.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, p *Profile) error
	SaveVerification(ctx context.Context, p *Profile) error
	SetAvailability(ctx context.Context, userID string, a Availability) error
	SetRating(ctx context.Context, userID string, avg float64, count int) error
	AddDocument(ctx context.Context, d *Document) error
	SetDocumentCategory(ctx context.Context, userID, docID, category string) error
	DeleteDocument(ctx context.Context, userID, docID string) error
	List(ctx context.Context, f ListFilter) ([]Profile, error)
	ListByStatus(ctx context.Context, status VerificationStatus) ([]Profile, error)

	AddProject(ctx context.Context, p *Project) error
	ListProjects(ctx context.Context, userID string) ([]Project, error)
	DeleteProject(ctx context.Context, userID, projectID string) error
	RecentProjects(ctx context.Context, limit int) ([]Project, error)

	// InTx runs fn against a Store bound to a single transaction.
	InTx(ctx context.Context, fn func(Store) error) error
	// LockProfile is GetProfile that also holds the profile row until the
	// enclosing transaction ends.
	LockProfile(ctx context.Context, userID string) (*Profile, error)
}

type notifier interface {
	Notify(ctx context.Context, n alerts.Notice)
}

type Service struct {
	store  Store
	notify notifier
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewService(store Store, notify notifier, log logrus.FieldLogger) *Service {
	return &Service{store: store, notify: notify, log: log, now: time.Now}
}

// UpsertProfile creates or edits the caller's profile. Verification
// fields are left untouched.
func (s *Service) UpsertProfile(ctx context.Context, userID string, in ProfileInput) (*Profile, error) {
	trade := pricing.NormalizeJobType(in.Trade)
	if !pricing.KnownJobType(trade) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTrade, in.Trade)
	}
	p := &Profile{
		UserID:          userID,
		Trade:           trade,
		ExperienceYears: in.ExperienceYears,
		WorkArea:        strings.TrimSpace(in.WorkArea),
		IDNumber:        strings.TrimSpace(in.IDNumber),
	}
	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return nil, err
	}
	return s.store.GetProfile(ctx, userID)
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return s.store.GetProfile(ctx, userID)
}

// GetPublicProfile is the profile other users see. Suspended accounts
// read as missing.
func (s *Service) GetPublicProfile(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrProfileNotFound
	}
	pub := p.Public()
	return &pub, nil
}

func (s *Service) AddDocument(ctx context.Context, userID, name, url, category string) (*Document, error) {
	if category == "" {
		category = CategoryOther
	}
	if !validCategory(category) {
		return nil, ErrInvalidCategory
	}
	if _, err := s.store.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	d := &Document{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		URL:       strings.TrimSpace(url),
		Category:  category,
		CreatedAt: s.now(),
	}
	if err := s.store.AddDocument(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) SetDocumentCategory(ctx context.Context, userID, docID, category string) (*Profile, error) {
	if !validCategory(category) {
		return nil, ErrInvalidCategory
	}
	var out *Profile
	err := s.locked(ctx, userID, func(st Store, _ *Profile) error {
		if err := st.SetDocumentCategory(ctx, userID, docID, category); err != nil {
			return err
		}
		var err error
		out, err = s.recheck(ctx, st, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) RemoveDocument(ctx context.Context, userID, docID string) (*Profile, error) {
	var out *Profile
	err := s.locked(ctx, userID, func(st Store, _ *Profile) error {
		if err := st.DeleteDocument(ctx, userID, docID); err != nil {
			return err
		}
		var err error
		out, err = s.recheck(ctx, st, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// locked runs fn in a transaction that holds the worker's profile row, so
// verification decisions and document changes for one worker serialize.
func (s *Service) locked(ctx context.Context, userID string, fn func(st Store, p *Profile) error) error {
	return s.store.InTx(ctx, func(st Store) error {
		p, err := st.LockProfile(ctx, userID)
		if err != nil {
			return err
		}
		return fn(st, p)
	})
}

// recheck drops a submitted or verified profile back to unsubmitted when
// the required documents are no longer on file.
func (s *Service) recheck(ctx context.Context, st Store, userID string) (*Profile, error) {
	p, err := st.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if HasRequiredDocuments(p.Documents) {
		return p, nil
	}
	if p.VerificationStatus != StatusPendingReview && p.VerificationStatus != StatusApproved {
		return p, nil
	}

	p.Verified = false
	p.VerificationStatus = StatusUnsubmitted
	p.SubmittedAt = nil
	if err := st.SaveVerification(ctx, p); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"instance": "worker.recheck", "user_id": userID}).Info("verification revoked after document change")
	return p, nil
}

// SubmitForVerification queues the profile for admin review.
func (s *Service) SubmitForVerification(ctx context.Context, userID string) (*Profile, error) {
	var out *Profile
	err := s.locked(ctx, userID, func(st Store, p *Profile) error {
		switch p.VerificationStatus {
		case StatusApproved:
			return ErrAlreadyVerified
		case StatusPendingReview:
			out = p
			return nil
		}
		if !HasRequiredDocuments(p.Documents) {
			return ErrMissingDocuments
		}

		now := s.now()
		p.VerificationStatus = StatusPendingReview
		p.RejectionReason = ""
		p.SubmittedAt = &now
		out = p
		return st.SaveVerification(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Approve re-checks the documents before marking the worker verified. The
// check and the write happen under the profile lock, so a document removed
// concurrently either lands first and fails the check or waits and revokes.
func (s *Service) Approve(ctx context.Context, adminID, userID string) (*Profile, error) {
	var out *Profile
	err := s.locked(ctx, userID, func(st Store, p *Profile) error {
		if p.VerificationStatus != StatusPendingReview {
			return ErrNotPending
		}
		if !HasRequiredDocuments(p.Documents) {
			return ErrMissingDocuments
		}

		now := s.now()
		p.Verified = true
		p.VerificationStatus = StatusApproved
		p.ReviewedAt = &now
		p.ReviewedBy = adminID
		out = p
		return st.SaveVerification(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"instance": "worker.Approve", "user_id": userID, "admin_id": adminID}).Info("worker verified")
	s.notify.Notify(ctx, alerts.Notice{
		UserID: userID,
		Kind:   alerts.KindVerification,
		Title:  "You're verified",
		Body:   "Your documents were approved. You can now send offers on jobs.",
	})
	return out, nil
}

func (s *Service) Reject(ctx context.Context, adminID, userID, reason string) (*Profile, error) {
	var out *Profile
	err := s.locked(ctx, userID, func(st Store, p *Profile) error {
		if p.VerificationStatus != StatusPendingReview {
			return ErrNotPending
		}

		now := s.now()
		p.Verified = false
		p.VerificationStatus = StatusRejected
		p.RejectionReason = strings.TrimSpace(reason)
		p.ReviewedAt = &now
		p.ReviewedBy = adminID
		out = p
		return st.SaveVerification(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, alerts.Notice{
		UserID: userID,
		Kind:   alerts.KindVerification,
		Title:  "Verification not approved",
		Body:   out.RejectionReason,
	})
	return out, nil
}

func (s *Service) SetAvailability(ctx context.Context, userID string, a Availability) error {
	if !a.Valid() {
		return ErrInvalidAvailability
	}
	return s.store.SetAvailability(ctx, userID, a)
}

func (s *Service) ListWorkers(ctx context.Context, trade string, verifiedOnly bool) ([]Profile, error) {
	f := ListFilter{VerifiedOnly: verifiedOnly}
	if trade != "" {
		f.Trade = pricing.NormalizeJobType(trade)
	}
	workers, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range workers {
		workers[i] = workers[i].Public()
	}
	return workers, nil
}

func (s *Service) ListPendingVerification(ctx context.Context) ([]Profile, error) {
	return s.store.ListByStatus(ctx, StatusPendingReview)
}

// RecordRating stores the aggregate computed from the worker's reviews.
func (s *Service) RecordRating(ctx context.Context, userID string, average float64, count int) error {
	return s.store.SetRating(ctx, userID, average, count)
}
