package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/tradelink/internal/utils"
)

// GET /admin/workers/pending
func (h *Handler) PendingWorkers(c echo.Context) error {
	profiles, err := h.workers.ListPendingVerification(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"workers": profiles})
}

// POST /admin/workers/:id/approve
func (h *Handler) ApproveWorker(c echo.Context) error {
	p, err := h.workers.Approve(c.Request().Context(), adminID(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// POST /admin/workers/:id/reject
func (h *Handler) RejectWorker(c echo.Context) error {
	var req rejectRequest
	if err := utils.BindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	p, err := h.workers.Reject(c.Request().Context(), adminID(c), c.Param("id"), req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
