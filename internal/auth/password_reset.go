package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/tradelink/internal/user"
	"github.com/sudo-init-do/tradelink/internal/utils"
)

const resetSentMessage = "If the email exists, a reset link has been sent."

type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /auth/password/request
// Always responds with success message to avoid user enumeration.
func (h *Handler) RequestPasswordReset(c echo.Context) error {
	req := new(RequestPasswordResetRequest)
	if err := utils.BindAndValidate(c, req); err != nil {
		return c.JSON(http.StatusOK, echo.Map{"message": resetSentMessage})
	}
	ctx := c.Request().Context()

	u, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.log.WithError(err).Error("password reset lookup failed")
		}
		return c.JSON(http.StatusOK, echo.Map{"message": resetSentMessage})
	}

	token, err := h.tokens.Issue(u.ID, "", utils.PurposePasswordReset, h.cfg.ResetTTL)
	if err != nil {
		h.log.WithError(err).WithField("user_id", u.ID).Warn("reset token not issued")
		return c.JSON(http.StatusOK, echo.Map{"message": resetSentMessage})
	}
	if err := h.mail.EnqueuePasswordReset(ctx, u.ID, u.Email, u.Name, token); err != nil {
		h.log.WithError(err).WithField("user_id", u.ID).Warn("reset email not queued")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": resetSentMessage})
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"omitempty,eqfield=NewPassword"`
}

// POST /auth/password/reset
func (h *Handler) ResetPassword(c echo.Context) error {
	req := new(ResetPasswordRequest)
	if err := utils.BindAndValidate(c, req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrorMessage(err)})
	}

	claims, err := h.tokens.Parse(req.Token, utils.PurposePasswordReset)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), h.cost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	if err := h.users.SetPassword(c.Request().Context(), claims.UserID, string(hashed)); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update password"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated successfully"})
}
