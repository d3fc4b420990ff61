package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/tradelink/internal/user"
	"github.com/sudo-init-do/tradelink/internal/utils"
)

type BootstrapAdminRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Secret string `json:"secret" validate:"required"`
}

// POST /auth/admin/bootstrap promotes an existing account when the
// caller knows ADMIN_BOOTSTRAP_SECRET.
func (h *Handler) BootstrapAdmin(c echo.Context) error {
	if h.cfg.AdminBootstrap == "" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "bootstrap disabled"})
	}
	req := new(BootstrapAdminRequest)
	if err := utils.BindAndValidate(c, req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.cfg.AdminBootstrap)) != 1 {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid secret"})
	}

	if err := h.users.SetRoleByEmail(c.Request().Context(), req.Email, user.RoleAdmin); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to promote user"})
	}
	h.log.WithField("email", req.Email).Warn("user promoted to admin via bootstrap")
	return c.JSON(http.StatusOK, echo.Map{"message": "user promoted to admin", "email": req.Email})
}
