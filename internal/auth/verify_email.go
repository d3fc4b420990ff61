package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/tradelink/internal/user"
	"github.com/sudo-init-do/tradelink/internal/utils"
)

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// POST /auth/verify-email
func (h *Handler) VerifyEmail(c echo.Context) error {
	req := new(VerifyEmailRequest)
	if err := utils.BindAndValidate(c, req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}

	claims, err := h.tokens.Parse(req.Token, utils.PurposeEmailVerify)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	if err := h.users.SetVerified(c.Request().Context(), claims.UserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		h.log.WithError(err).WithField("user_id", claims.UserID).Error("verify email failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to verify email"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}

// POST /auth/verify-email/resend
func (h *Handler) ResendVerification(c echo.Context) error {
	userID, _ := c.Get("user_id").(string)
	u, err := h.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if u.Verified {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already verified"})
	}
	h.sendVerification(c.Request().Context(), u)
	return c.JSON(http.StatusAccepted, echo.Map{"message": "verification email sent"})
}
