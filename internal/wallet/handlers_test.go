package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/tradelink/internal/logging"
)

type fakeLedger struct {
	summary *Summary
	txs     []Transaction
	err     error
}

func (f *fakeLedger) Summary(context.Context, string) (*Summary, error) { return f.summary, f.err }

func (f *fakeLedger) Transactions(context.Context, string, int) ([]Transaction, error) {
	return f.txs, f.err
}

func serve(h echo.HandlerFunc, userID string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/worker/earnings", h, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID != "" {
				c.Set("user_id", userID)
			}
			return next(c)
		}
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/worker/earnings", nil))
	return rec
}

func TestEarnings(t *testing.T) {
	ledger := &fakeLedger{
		summary: &Summary{Balance: 1200, TotalEarned: 1200, PendingPayments: 900, CompletedJobs: 1, Currency: "ZAR"},
		txs:     []Transaction{{ID: "t-1", Amount: 1200, Type: "credit", Status: StatusJobEarning, Reference: "j-1"}},
	}
	h := NewHandler(ledger, logging.Discard())

	rec := serve(h.Earnings, "w-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Summary      Summary       `json:"summary"`
		Transactions []Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Summary.PendingPayments != 900 || len(body.Transactions) != 1 {
		t.Fatalf("body = %+v", body)
	}

	if rec := serve(h.Earnings, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d", rec.Code)
	}

	failing := NewHandler(&fakeLedger{err: errors.New("db down")}, logging.Discard())
	if rec := serve(failing.Earnings, "w-1"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("failing = %d", rec.Code)
	}
}
