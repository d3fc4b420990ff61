package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sudo-init-do/tradelink/internal/alerts"
)

type memStore struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	profiles map[string]*Profile
	docs     map[string][]Document
	projects []Project
	locks    int
}

func newMemStore() *memStore {
	return &memStore{profiles: map[string]*Profile{}, docs: map[string][]Document{}}
}

// InTx serializes transactions; LockProfile only counts, since holding
// txMu already excludes every other transaction.
func (m *memStore) InTx(_ context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}

func (m *memStore) LockProfile(ctx context.Context, userID string) (*Profile, error) {
	m.mu.Lock()
	m.locks++
	m.mu.Unlock()
	return m.GetProfile(ctx, userID)
}

func (m *memStore) suspend(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID].Active = false
}

func (m *memStore) GetProfile(_ context.Context, userID string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	cp.Documents = append([]Document{}, m.docs[userID]...)
	return &cp, nil
}

func (m *memStore) UpsertProfile(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.profiles[p.UserID]; ok {
		cur.Trade, cur.ExperienceYears, cur.WorkArea, cur.IDNumber = p.Trade, p.ExperienceYears, p.WorkArea, p.IDNumber
		return nil
	}
	cp := *p
	cp.Active = true
	cp.Availability = Available
	cp.VerificationStatus = StatusUnsubmitted
	cp.CreatedAt = time.Now()
	m.profiles[p.UserID] = &cp
	return nil
}

func (m *memStore) SaveVerification(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.profiles[p.UserID]
	if !ok {
		return ErrProfileNotFound
	}
	cur.Verified, cur.VerificationStatus, cur.RejectionReason = p.Verified, p.VerificationStatus, p.RejectionReason
	cur.SubmittedAt, cur.ReviewedAt, cur.ReviewedBy = p.SubmittedAt, p.ReviewedAt, p.ReviewedBy
	return nil
}

func (m *memStore) SetAvailability(_ context.Context, userID string, a Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	p.Availability = a
	return nil
}

func (m *memStore) SetRating(_ context.Context, userID string, avg float64, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	p.Rating, p.RatingCount = avg, count
	return nil
}

func (m *memStore) AddDocument(_ context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[d.UserID] = append(m.docs[d.UserID], *d)
	return nil
}

func (m *memStore) SetDocumentCategory(_ context.Context, userID, docID, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.docs[userID] {
		if d.ID == docID {
			m.docs[userID][i].Category = category
			return nil
		}
	}
	return ErrDocumentNotFound
}

func (m *memStore) DeleteDocument(_ context.Context, userID, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.docs[userID]
	for i, d := range docs {
		if d.ID == docID {
			m.docs[userID] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return ErrDocumentNotFound
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Profile{}
	for _, p := range m.profiles {
		if !p.Active {
			continue
		}
		if f.Trade != "" && p.Trade != f.Trade {
			continue
		}
		if f.VerifiedOnly && !p.Verified {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memStore) ListByStatus(_ context.Context, status VerificationStatus) ([]Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Profile{}
	for _, p := range m.profiles {
		if p.VerificationStatus == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) AddProject(_ context.Context, pr *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects = append(m.projects, *pr)
	return nil
}

// ListProjects and RecentProjects return newest first; projects are
// appended in creation order.
func (m *memStore) ListProjects(_ context.Context, userID string) ([]Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Project{}
	for i := len(m.projects) - 1; i >= 0; i-- {
		if m.projects[i].UserID == userID {
			out = append(out, m.decorateProject(m.projects[i]))
		}
	}
	return out, nil
}

func (m *memStore) RecentProjects(_ context.Context, limit int) ([]Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Project{}
	for i := len(m.projects) - 1; i >= 0 && len(out) < limit; i-- {
		if p, ok := m.profiles[m.projects[i].UserID]; ok && p.Active {
			out = append(out, m.decorateProject(m.projects[i]))
		}
	}
	return out, nil
}

func (m *memStore) decorateProject(pr Project) Project {
	if p, ok := m.profiles[pr.UserID]; ok {
		pr.WorkerName, pr.Trade = p.Name, p.Trade
	}
	return pr
}

func (m *memStore) DeleteProject(_ context.Context, userID, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, pr := range m.projects {
		if pr.ID == projectID && pr.UserID == userID {
			m.projects = append(m.projects[:i:i], m.projects[i+1:]...)
			return nil
		}
	}
	return ErrProjectNotFound
}

type recordedNotices struct {
	mu      sync.Mutex
	notices []alerts.Notice
}

func (r *recordedNotices) Notify(_ context.Context, n alerts.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}
