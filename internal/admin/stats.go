package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	users, err := h.users.CountByRole(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	jobs, err := h.jobs.Stats(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	pending, err := h.workers.ListPendingVerification(ctx)
	if err != nil {
		return h.fail(c, err)
	}

	totalUsers, totalJobs := 0, 0
	for _, n := range users {
		totalUsers += n
	}
	for _, n := range jobs {
		totalJobs += n
	}

	return c.JSON(http.StatusOK, echo.Map{
		"users":                 totalUsers,
		"users_by_role":         users,
		"jobs":                  totalJobs,
		"jobs_by_status":        jobs,
		"pending_verifications": len(pending),
	})
}
