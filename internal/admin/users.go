package admin

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/user"
)

// GET /admin/users?role=&search=&limit=&offset=
func (h *Handler) ListUsers(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	users, err := h.users.List(c.Request().Context(), user.ListFilter{
		Role:   c.QueryParam("role"),
		Search: c.QueryParam("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

func (h *Handler) setActive(c echo.Context, active bool) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": user.ErrNotFound.Error()})
	}
	if !active && id == adminID(c) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot suspend your own account"})
	}

	ctx := c.Request().Context()
	target, err := h.users.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	if !active && target.Role == user.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admins cannot be suspended"})
	}
	if err := h.users.SetActive(ctx, id, active); err != nil {
		return h.fail(c, err)
	}

	h.log.WithFields(logrus.Fields{"admin_id": adminID(c), "user_id": id, "active": active}).Info("user activation changed")
	msg := "user activated"
	if !active {
		msg = "user suspended"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "user_id": id})
}

// POST /admin/users/:id/suspend
func (h *Handler) SuspendUser(c echo.Context) error {
	return h.setActive(c, false)
}

// POST /admin/users/:id/activate
func (h *Handler) ActivateUser(c echo.Context) error {
	return h.setActive(c, true)
}
