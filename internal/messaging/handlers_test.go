package messaging

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/tradelink/internal/logging"
	"github.com/sudo-init-do/tradelink/internal/utils"
)

func newTestEcho(f *fixture) *echo.Echo {
	h := NewHandler(f.svc, NewHub(logging.Discard()), []string{"*"}, logging.Discard())
	e := echo.New()
	e.Validator = utils.NewValidator()
	g := e.Group("", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", c.Request().Header.Get("X-Test-User"))
			return next(c)
		}
	})
	g.GET("/conversations/:id/messages", h.ListMessages)
	g.POST("/conversations/:id/messages", h.SendMessage)
	g.GET("/conversations/:id/unread", h.UnreadCount)
	g.POST("/conversations/:id/messages/:message_id/read", h.MarkRead)
	return e
}

func request(e *echo.Echo, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("X-Test-User", userID)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlerSendReadFlow(t *testing.T) {
	e := newTestEcho(newFixture())

	rec := request(e, http.MethodPost, "/conversations/conv-1/messages", "cust", `{"content":"hello"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d (%s)", rec.Code, rec.Body.String())
	}
	var m Message
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = request(e, http.MethodGet, "/conversations/conv-1/unread", "work", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"unread":1`) {
		t.Fatalf("unread = %d %s", rec.Code, rec.Body.String())
	}

	// only the recipient may mark it read
	rec = request(e, http.MethodPost, "/conversations/conv-1/messages/"+m.ID+"/read", "cust", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("sender mark read status = %d, want 403", rec.Code)
	}
	rec = request(e, http.MethodPost, "/conversations/conv-1/messages/"+m.ID+"/read", "work", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = request(e, http.MethodGet, "/conversations/conv-1/unread", "work", "")
	if !strings.Contains(rec.Body.String(), `"unread":0`) {
		t.Fatalf("unread after read = %s", rec.Body.String())
	}
}

func TestHandlerErrors(t *testing.T) {
	e := newTestEcho(newFixture())

	cases := []struct {
		name   string
		method string
		path   string
		user   string
		body   string
		want   int
	}{
		{"outsider listing", http.MethodGet, "/conversations/conv-1/messages", "stranger", "", http.StatusForbidden},
		{"bad since", http.MethodGet, "/conversations/conv-1/messages?since=yesterday", "cust", "", http.StatusBadRequest},
		{"unknown conversation", http.MethodGet, "/conversations/nope/messages", "cust", "", http.StatusNotFound},
		{"bad kind", http.MethodPost, "/conversations/conv-1/messages", "cust", `{"kind":"video","content":"x"}`, http.StatusBadRequest},
		{"image without url", http.MethodPost, "/conversations/conv-1/messages", "cust", `{"kind":"image"}`, http.StatusBadRequest},
		{"unknown message", http.MethodPost, "/conversations/conv-1/messages/missing/read", "work", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := request(e, tc.method, tc.path, tc.user, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	cases := map[string]int{"": 100, "abc": 100, "0": 100, "-3": 100, "20": 20, "9000": 500}
	for raw, want := range cases {
		if got := parseLimit(raw, 100, 500); got != want {
			t.Errorf("parseLimit(%q) = %d, want %d", raw, got, want)
		}
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.Header.Set("Origin", "https://app.example")
	if !check(req) {
		t.Error("listed origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example")
	if check(req) {
		t.Error("unlisted origin accepted")
	}
	if !originChecker([]string{"*"})(req) {
		t.Error("wildcard should accept any origin")
	}
}
