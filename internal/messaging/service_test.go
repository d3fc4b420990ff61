package messaging

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sudo-init-do/tradelink/internal/alerts"
	"github.com/sudo-init-do/tradelink/internal/logging"
)

type memStore struct {
	mu    sync.Mutex
	convs map[string]*Conversation
	msgs  []*Message
}

func newMemStore(convs ...*Conversation) *memStore {
	s := &memStore{convs: map[string]*Conversation{}}
	for _, c := range convs {
		s.convs[c.ID] = c
	}
	return s
}

func (s *memStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) ListConversations(_ context.Context, userID string) ([]Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Conversation
	for _, c := range s.convs {
		if c.Counterparty(userID) != "" {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) InsertMessage(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.msgs = append(s.msgs, &cp)
	return nil
}

func (s *memStore) ListMessages(_ context.Context, convID string, since *time.Time, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.msgs {
		if m.ConversationID != convID || (since != nil && !m.CreatedAt.After(*since)) {
			continue
		}
		out = append(out, *m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) UnreadCount(_ context.Context, convID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.ConversationID == convID && m.RecipientID == userID && m.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (s *memStore) MarkRead(_ context.Context, convID, msgID, userID string, at time.Time) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.ID != msgID || m.ConversationID != convID {
			continue
		}
		if m.RecipientID != userID {
			return nil, ErrNotRecipient
		}
		if m.ReadAt == nil {
			m.ReadAt = &at
		}
		cp := *m
		return &cp, nil
	}
	return nil, ErrMessageNotFound
}

type recordedEvent struct {
	room string
	evt  Event
}

type fakeFanout struct {
	mu     sync.Mutex
	events []recordedEvent
	online map[string]bool
}

func (f *fakeFanout) Publish(_ context.Context, room string, evt Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{room: room, evt: evt})
}

func (f *fakeFanout) Online(_, userID string) bool { return f.online[userID] }

type fakeNotify struct{ notices []alerts.Notice }

func (f *fakeNotify) Notify(_ context.Context, n alerts.Notice) { f.notices = append(f.notices, n) }

type fakeMail struct{ sent []string }

func (f *fakeMail) EnqueueMessageNew(_ context.Context, _, _, recipientID, email, _ string) error {
	f.sent = append(f.sent, recipientID+":"+email)
	return nil
}

type fakeContacts map[string]string

func (f fakeContacts) Contact(_ context.Context, userID string) (string, string, error) {
	return "Name", f[userID], nil
}

type fixture struct {
	svc    *Service
	store  *memStore
	fanout *fakeFanout
	notify *fakeNotify
	mail   *fakeMail
}

func newFixture() *fixture {
	store := newMemStore(&Conversation{ID: "conv-1", JobID: "job-1", CustomerID: "cust", WorkerID: "work"})
	f := &fixture{
		store:  store,
		fanout: &fakeFanout{online: map[string]bool{}},
		notify: &fakeNotify{},
		mail:   &fakeMail{},
	}
	f.svc = NewService(store, Deps{
		Fanout:   f.fanout,
		Presence: f.fanout,
		Notify:   f.notify,
		Mail:     f.mail,
		Contacts: fakeContacts{"cust": "c@example.com", "work": "w@example.com"},
	}, logging.Discard())
	return f
}

func TestSendMessageDeliversAndNotifies(t *testing.T) {
	f := newFixture()

	m, err := f.svc.SendMessage(context.Background(), "cust", "conv-1", "", "  When can you start?  ", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if m.RecipientID != "work" || m.Kind != KindText || m.Content != "When can you start?" {
		t.Errorf("unexpected message %+v", m)
	}
	if len(f.fanout.events) != 1 || f.fanout.events[0].evt.Type != EventMessageNew || f.fanout.events[0].room != "conv-1" {
		t.Errorf("expected one message_new on conv-1, got %+v", f.fanout.events)
	}
	if len(f.notify.notices) != 1 || f.notify.notices[0].UserID != "work" || f.notify.notices[0].JobID != "job-1" {
		t.Errorf("expected in-app notice for worker, got %+v", f.notify.notices)
	}
	if len(f.mail.sent) != 1 || f.mail.sent[0] != "work:w@example.com" {
		t.Errorf("expected email to offline worker, got %v", f.mail.sent)
	}
}

func TestSendMessageSkipsEmailWhenRecipientOnline(t *testing.T) {
	f := newFixture()
	f.fanout.online["work"] = true

	if _, err := f.svc.SendMessage(context.Background(), "cust", "conv-1", KindText, "hi", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(f.mail.sent) != 0 {
		t.Errorf("expected no email for online recipient, got %v", f.mail.sent)
	}
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		name    string
		user    string
		kind    string
		content string
		url     string
		want    error
	}{
		{"empty text", "cust", KindText, "   ", "", ErrInvalidMessage},
		{"image without url", "cust", KindImage, "", "", ErrInvalidMessage},
		{"file with ftp url", "work", KindFile, "", "ftp://files.example/a.pdf", ErrInvalidMessage},
		{"unknown kind", "cust", "video", "x", "", ErrInvalidMessage},
		{"outsider", "stranger", KindText, "hello", "", ErrNotParticipant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SendMessage(ctx, tc.user, "conv-1", tc.kind, tc.content, tc.url)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := f.svc.SendMessage(ctx, "work", "conv-1", KindImage, "", "https://cdn.example/p.jpg"); err != nil {
		t.Errorf("expected image with https url to succeed, got %v", err)
	}
	if len(f.store.msgs) != 1 {
		t.Errorf("expected only the valid message stored, got %d", len(f.store.msgs))
	}
}

func TestMarkReadOnlyByRecipient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	m, err := f.svc.SendMessage(ctx, "cust", "conv-1", KindText, "hello", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if n, _ := f.svc.UnreadCount(ctx, "work", "conv-1"); n != 1 {
		t.Errorf("expected 1 unread, got %d", n)
	}

	if _, err := f.svc.MarkRead(ctx, "cust", "conv-1", m.ID); !errors.Is(err, ErrNotRecipient) {
		t.Errorf("expected ErrNotRecipient for sender, got %v", err)
	}

	read, err := f.svc.MarkRead(ctx, "work", "conv-1", m.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if read.ReadAt == nil {
		t.Fatal("expected read_at set")
	}
	first := *read.ReadAt

	again, err := f.svc.MarkRead(ctx, "work", "conv-1", m.ID)
	if err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if !again.ReadAt.Equal(first) {
		t.Errorf("expected read_at unchanged, got %v want %v", again.ReadAt, first)
	}
	if n, _ := f.svc.UnreadCount(ctx, "work", "conv-1"); n != 0 {
		t.Errorf("expected 0 unread, got %d", n)
	}

	last := f.fanout.events[len(f.fanout.events)-1]
	if last.evt.Type != EventMessageRead {
		t.Errorf("expected message_read broadcast, got %s", last.evt.Type)
	}
}

func TestListMessagesSince(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	f.svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, text := range []string{"one", "two", "three"} {
		if _, err := f.svc.SendMessage(ctx, "cust", "conv-1", KindText, text, ""); err != nil {
			t.Fatalf("send %s: %v", text, err)
		}
	}

	since := base.Add(time.Minute)
	msgs, err := f.svc.ListMessages(ctx, "work", "conv-1", &since, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "two" {
		t.Errorf("expected messages after first, got %+v", msgs)
	}

	if _, err := f.svc.ListMessages(ctx, "stranger", "conv-1", nil, 100); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := f.svc.GetConversation(ctx, "cust", "missing"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}
