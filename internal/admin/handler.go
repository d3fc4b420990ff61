// Package admin serves the operator endpoints under /admin. Routes are
// mounted behind JWTMiddleware and AdminGuard.
package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/marketplace"
	"github.com/sudo-init-do/tradelink/internal/user"
	"github.com/sudo-init-do/tradelink/internal/worker"
)

type userDirectory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	List(ctx context.Context, f user.ListFilter) ([]user.User, error)
	CountByRole(ctx context.Context) (map[string]int, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type verifier interface {
	ListPendingVerification(ctx context.Context) ([]worker.Profile, error)
	Approve(ctx context.Context, adminID, userID string) (*worker.Profile, error)
	Reject(ctx context.Context, adminID, userID, reason string) (*worker.Profile, error)
}

type jobStats interface {
	Stats(ctx context.Context) (map[marketplace.Status]int, error)
}

type Handler struct {
	users   userDirectory
	workers verifier
	jobs    jobStats
	log     logrus.FieldLogger
}

func NewHandler(users userDirectory, workers verifier, jobs jobStats, log logrus.FieldLogger) *Handler {
	return &Handler{users: users, workers: workers, jobs: jobs, log: log}
}

func statusCode(err error) int {
	if errors.Is(err, user.ErrNotFound) {
		return http.StatusNotFound
	}
	return worker.StatusCode(err)
}

func (h *Handler) fail(c echo.Context, err error) error {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.Path()).Error("admin request failed")
		return c.JSON(code, echo.Map{"error": "internal error"})
	}
	return c.JSON(code, echo.Map{"error": err.Error()})
}

func adminID(c echo.Context) string {
	uid, _ := c.Get("user_id").(string)
	return uid
}
