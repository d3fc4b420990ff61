package wallet

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ledgerReader interface {
	Summary(ctx context.Context, userID string) (*Summary, error)
	Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
}

type Handler struct {
	store ledgerReader
	log   logrus.FieldLogger
}

func NewHandler(store ledgerReader, log logrus.FieldLogger) *Handler {
	return &Handler{store: store, log: log}
}

// Earnings returns the authenticated worker's earnings summary
func (h *Handler) Earnings(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	sum, err := h.store.Summary(c.Request().Context(), uid)
	if err != nil {
		h.log.WithError(err).WithField("user_id", uid).Error("earnings summary failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load earnings"})
	}
	txs, err := h.store.Transactions(c.Request().Context(), uid, limitParam(c))
	if err != nil {
		h.log.WithError(err).WithField("user_id", uid).Error("transactions failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"summary": sum, "transactions": txs})
}

// AdminGetUserTransactions returns all transactions for a specific user (admin view)
func (h *Handler) AdminGetUserTransactions(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user ID is required"})
	}
	txs, err := h.store.Transactions(c.Request().Context(), userID, limitParam(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch user transactions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

func limitParam(c echo.Context) int {
	n, _ := strconv.Atoi(c.QueryParam("limit"))
	return n
}
