package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/tradelink/internal/logging"
	"github.com/sudo-init-do/tradelink/internal/marketplace"
	"github.com/sudo-init-do/tradelink/internal/user"
	"github.com/sudo-init-do/tradelink/internal/utils"
	"github.com/sudo-init-do/tradelink/internal/worker"
)

const (
	adminUID    = "6f1c2a34-0000-4000-8000-000000000001"
	customerUID = "6f1c2a34-0000-4000-8000-000000000002"
	otherAdmin  = "6f1c2a34-0000-4000-8000-000000000003"
)

type fakeUsers struct {
	users map[string]*user.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) List(_ context.Context, filter user.ListFilter) ([]user.User, error) {
	out := []user.User{}
	for _, u := range f.users {
		if filter.Role == "" || u.Role == filter.Role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) CountByRole(context.Context) (map[string]int, error) {
	out := map[string]int{}
	for _, u := range f.users {
		out[u.Role]++
	}
	return out, nil
}

func (f *fakeUsers) SetActive(_ context.Context, id string, active bool) error {
	u, ok := f.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.IsActive = active
	return nil
}

type fakeVerifier struct {
	pending []worker.Profile
}

func (f *fakeVerifier) ListPendingVerification(context.Context) ([]worker.Profile, error) {
	return f.pending, nil
}

func (f *fakeVerifier) Approve(_ context.Context, _, id string) (*worker.Profile, error) {
	for _, p := range f.pending {
		if p.UserID == id {
			p.Verified = true
			p.VerificationStatus = worker.StatusApproved
			return &p, nil
		}
	}
	return nil, worker.ErrNotPending
}

func (f *fakeVerifier) Reject(_ context.Context, _, id, reason string) (*worker.Profile, error) {
	for _, p := range f.pending {
		if p.UserID == id {
			p.VerificationStatus = worker.StatusRejected
			p.RejectionReason = reason
			return &p, nil
		}
	}
	return nil, worker.ErrProfileNotFound
}

type fakeJobs map[marketplace.Status]int

func (f fakeJobs) Stats(context.Context) (map[marketplace.Status]int, error) { return f, nil }

func newAdminServer() (*echo.Echo, *fakeUsers) {
	users := &fakeUsers{users: map[string]*user.User{
		adminUID:    {ID: adminUID, Role: user.RoleAdmin, IsActive: true},
		otherAdmin:  {ID: otherAdmin, Role: user.RoleAdmin, IsActive: true},
		customerUID: {ID: customerUID, Role: user.RoleCustomer, IsActive: true},
	}}
	verifier := &fakeVerifier{pending: []worker.Profile{{UserID: "w-1", VerificationStatus: worker.StatusPendingReview}}}
	h := NewHandler(users, verifier, fakeJobs{marketplace.StatusOpen: 2, marketplace.StatusCompleted: 1}, logging.Discard())

	e := echo.New()
	e.Validator = utils.NewValidator()
	g := e.Group("/admin", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", adminUID)
			c.Set("role", user.RoleAdmin)
			return next(c)
		}
	})
	g.GET("/stats", h.Stats)
	g.GET("/users", h.ListUsers)
	g.POST("/users/:id/suspend", h.SuspendUser)
	g.POST("/users/:id/activate", h.ActivateUser)
	g.GET("/workers/pending", h.PendingWorkers)
	g.POST("/workers/:id/approve", h.ApproveWorker)
	g.POST("/workers/:id/reject", h.RejectWorker)
	return e, users
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestStats(t *testing.T) {
	e, _ := newAdminServer()
	rec := do(e, http.MethodGet, "/admin/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Users   int `json:"users"`
		Jobs    int `json:"jobs"`
		Pending int `json:"pending_verifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Users != 3 || body.Jobs != 3 || body.Pending != 1 {
		t.Errorf("unexpected stats %+v", body)
	}
}

func TestSuspendAndActivate(t *testing.T) {
	e, users := newAdminServer()

	cases := []struct {
		name string
		path string
		code int
	}{
		{"suspend customer", "/admin/users/" + customerUID + "/suspend", http.StatusOK},
		{"suspend self", "/admin/users/" + adminUID + "/suspend", http.StatusBadRequest},
		{"suspend admin", "/admin/users/" + otherAdmin + "/suspend", http.StatusForbidden},
		{"bad id", "/admin/users/nope/suspend", http.StatusNotFound},
		{"unknown id", "/admin/users/6f1c2a34-0000-4000-8000-0000000000ff/suspend", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := do(e, http.MethodPost, tc.path, ""); rec.Code != tc.code {
				t.Errorf("expected %d, got %d (%s)", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
	if users.users[customerUID].IsActive {
		t.Fatal("customer should be suspended")
	}

	if rec := do(e, http.MethodPost, "/admin/users/"+customerUID+"/activate", ""); rec.Code != http.StatusOK {
		t.Fatalf("activate = %d", rec.Code)
	}
	if !users.users[customerUID].IsActive {
		t.Error("customer should be active again")
	}
}

func TestWorkerVerification(t *testing.T) {
	e, _ := newAdminServer()

	if rec := do(e, http.MethodPost, "/admin/workers/w-1/reject", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("reject without reason: expected 400, got %d", rec.Code)
	}
	rec := do(e, http.MethodPost, "/admin/workers/w-1/reject", `{"reason":"blurry id"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "blurry id") {
		t.Errorf("reject: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/admin/workers/w-1/approve", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("approve = %d", rec.Code)
	}
	var p worker.Profile
	_ = json.Unmarshal(rec.Body.Bytes(), &p)
	if !p.Verified {
		t.Error("expected verified profile")
	}

	if rec := do(e, http.MethodPost, "/admin/workers/w-9/approve", ""); rec.Code != http.StatusConflict {
		t.Errorf("approve non-pending: expected 409, got %d", rec.Code)
	}
}
