package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/tradelink/internal/config"
	"github.com/sudo-init-do/tradelink/internal/logging"
)

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type()}, nil
}

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func TestEnqueuePasswordReset(t *testing.T) {
	q := &fakeQueue{}
	e := newEnqueuer(q, "https://app.example", 30, logging.Discard())

	if err := e.EnqueuePasswordReset(context.Background(), "u-1", "ann@example.com", "Ann", "tok+en"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(q.tasks) != 1 || q.tasks[0].Type() != TaskPasswordReset {
		t.Fatalf("tasks = %+v", q.tasks)
	}

	var p PasswordResetPayload
	if err := json.Unmarshal(q.tasks[0].Payload(), &p); err != nil {
		t.Fatal(err)
	}
	if p.ResetURL != "https://app.example/reset-password?token=tok%2Ben" {
		t.Errorf("reset url = %s", p.ResetURL)
	}
	if p.Envelope.To != "ann@example.com" || !strings.Contains(p.Envelope.Body, "30 minutes") {
		t.Errorf("envelope = %+v", p.Envelope)
	}
}

func TestEnqueueWrapsQueueError(t *testing.T) {
	q := &fakeQueue{err: errors.New("redis down")}
	e := newEnqueuer(q, "https://app.example", 30, logging.Discard())

	err := e.EnqueueWelcomeEmail(context.Background(), "u-1", "a@b.c", "A")
	if err == nil || !strings.Contains(err.Error(), TaskWelcomeEmail) {
		t.Fatalf("err = %v", err)
	}
}

func TestProcessorDeliversJobUpdate(t *testing.T) {
	mailer := &fakeMailer{}
	p := NewProcessor(mailer, logging.Discard())

	payload, _ := json.Marshal(JobUpdatePayload{
		UserID: "w-1", JobID: "j-1", Kind: KindOfferAccepted,
		Envelope: EmailEnvelope{To: "w@example.com", Subject: "Offer accepted", Body: "Your offer was accepted"},
	})
	if err := p.handleJobUpdate(context.Background(), asynq.NewTask(TaskJobUpdate, payload)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "w@example.com" {
		t.Fatalf("sent = %+v", mailer.sent)
	}
}

func TestProcessorSkipsRetryOnBadPayload(t *testing.T) {
	p := NewProcessor(&fakeMailer{}, logging.Discard())

	err := p.handleWelcomeEmail(context.Background(), asynq.NewTask(TaskWelcomeEmail, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want SkipRetry", err)
	}

	empty, _ := json.Marshal(VerifyEmailPayload{UserID: "u-1"})
	err = p.handleVerifyEmail(context.Background(), asynq.NewTask(TaskVerifyEmail, empty))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("missing recipient err = %v, want SkipRetry", err)
	}
}

func TestProcessorReturnsSendError(t *testing.T) {
	p := NewProcessor(&fakeMailer{err: errors.New("boom")}, logging.Discard())
	payload, _ := json.Marshal(MessageNewPayload{Envelope: EmailEnvelope{To: "x@example.com"}})

	if err := p.handleMessageNew(context.Background(), asynq.NewTask(TaskMessageNew, payload)); err == nil {
		t.Fatal("expected error so asynq retries")
	}
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("from@x", "reply@x", "to@x", "Hi", "<html><body>hey</body></html>")
	for _, want := range []string{"From: from@x\r\n", "Reply-To: reply@x\r\n", "Content-Type: text/html"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if strings.Contains(buildMessage("f", "", "t", "s", "plain"), "Reply-To") {
		t.Error("empty reply-to should be omitted")
	}
}

func TestNewMailerSelectsProvider(t *testing.T) {
	log := logging.Discard()
	if m, err := NewMailer(config.Mail{Provider: "log"}, log); err != nil {
		t.Fatal(err)
	} else if _, ok := m.(*LogMailer); !ok {
		t.Fatalf("got %T", m)
	}
	if _, err := NewMailer(config.Mail{Provider: "smtp"}, log); err == nil {
		t.Fatal("smtp without host should fail")
	}
	if _, err := NewMailer(config.Mail{Provider: "plunk"}, log); err == nil {
		t.Fatal("plunk without key should fail")
	}
	if m, err := NewMailer(config.Mail{Provider: "sendgrid", SendGridAPIKey: "k", From: "a@b.c"}, log); err != nil {
		t.Fatal(err)
	} else if _, ok := m.(*SendGridMailer); !ok {
		t.Fatalf("got %T", m)
	}
}

func TestPlunkMailerBreakerOpens(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := NewPlunkMailer(config.Mail{PlunkAPIKey: "key", PlunkAPIURL: srv.URL}, srv.Client(), logging.Discard())
	for i := 0; i < 3; i++ {
		if err := m.Send(context.Background(), "a@b.c", "s", "b"); err == nil {
			t.Fatal("expected failure")
		}
	}
	err := m.Send(context.Background(), "a@b.c", "s", "b")
	if !errors.Is(err, ErrMailerUnavailable) {
		t.Fatalf("err = %v, want ErrMailerUnavailable", err)
	}
	if calls != 3 {
		t.Fatalf("provider calls = %d, want 3", calls)
	}
}

func TestPlunkMailerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body plunkSendBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.To != "a@b.c" || body.Subject != "s" {
			t.Errorf("body = %+v", body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewPlunkMailer(config.Mail{PlunkAPIKey: "key", PlunkAPIURL: srv.URL}, srv.Client(), logging.Discard())
	if err := m.Send(context.Background(), "a@b.c", "s", "b"); err != nil {
		t.Fatal(err)
	}
}

type memNotifications struct {
	items []Notification
	err   error
}

func (m *memNotifications) Create(_ context.Context, n *Notification) error {
	if m.err != nil {
		return m.err
	}
	n.ID = "n-" + n.UserID
	n.CreatedAt = time.Now()
	m.items = append(m.items, *n)
	return nil
}

func (m *memNotifications) List(_ context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	out := []Notification{}
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || n.ReadAt == nil) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) MarkRead(_ context.Context, userID, id string) (bool, error) {
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID && m.items[i].ReadAt == nil {
			now := time.Now()
			m.items[i].ReadAt = &now
			return true, nil
		}
	}
	return false, nil
}

type fakeContacts map[string]string

func (f fakeContacts) Contact(_ context.Context, userID string) (string, string, error) {
	email, ok := f[userID]
	if !ok {
		return "", "", errors.New("unknown user")
	}
	return "Name", email, nil
}

type fakeJobMailer struct{ kinds []string }

func (f *fakeJobMailer) EnqueueJobUpdate(_ context.Context, _, _, _, kind, _, _ string) error {
	f.kinds = append(f.kinds, kind)
	return nil
}

func TestNotifierStoresAndMails(t *testing.T) {
	store := &memNotifications{}
	mail := &fakeJobMailer{}
	n := NewNotifier(store, mail, fakeContacts{"u-1": "u1@example.com"}, logging.Discard())

	n.Notify(context.Background(), Notice{UserID: "u-1", Kind: KindOfferReceived, Title: "New offer", JobID: "j-1", Email: true})
	n.Notify(context.Background(), Notice{UserID: "u-2", Kind: KindOfferDeclined, Title: "Declined", JobID: "j-1", Email: true})
	n.Notify(context.Background(), Notice{UserID: "u-1", Kind: KindVerification, Title: "Approved"})

	if len(store.items) != 3 {
		t.Fatalf("stored = %d", len(store.items))
	}
	if store.items[0].Reference != "j-1" {
		t.Errorf("reference = %q", store.items[0].Reference)
	}
	// u-2 has no contact and the third notice is in-app only
	if len(mail.kinds) != 1 || mail.kinds[0] != KindOfferReceived {
		t.Fatalf("mailed = %v", mail.kinds)
	}
}

func TestNotifierSwallowsStoreError(t *testing.T) {
	mail := &fakeJobMailer{}
	n := NewNotifier(&memNotifications{err: errors.New("db down")}, mail, fakeContacts{"u-1": "a@b.c"}, logging.Discard())
	n.Notify(context.Background(), Notice{UserID: "u-1", Kind: KindJobCompleted, Email: true})
	if len(mail.kinds) != 1 {
		t.Fatal("email should still be queued")
	}
}

func TestNotificationHandlers(t *testing.T) {
	store := &memNotifications{}
	_ = store.Create(context.Background(), &Notification{UserID: "u-1", Type: KindOfferReceived, Title: "t"})
	h := NewHandler(store, logging.Discard())

	e := echo.New()
	auth := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", "u-1")
			return next(c)
		}
	}
	e.GET("/notifications", h.ListNotifications, auth)
	e.POST("/notifications/:id/read", h.MarkNotificationRead, auth)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications?unread=true", nil))
	var body struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || len(body.Notifications) != 1 {
		t.Fatalf("list: code=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/n-u-1/read", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/n-u-1/read", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second mark read = %d, want 404", rec.Code)
	}
}
