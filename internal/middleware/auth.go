package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/tradelink/internal/utils"
)

// Context keys set by JWTMiddleware.
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
)

// Accounts reports whether a user may still act. Tokens outlive a
// suspension, so every request is checked against it.
type Accounts interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// JWTMiddleware verifies the bearer token and stores user_id and role on
// the echo context. The role comes only from the signed claim.
func JWTMiddleware(tokens *utils.Tokens, accounts Accounts) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := utils.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if errors.Is(err, utils.ErrMissingToken) && c.IsWebSocket() {
				// browsers cannot set headers on websocket upgrades
				if q := c.QueryParam("token"); q != "" {
					raw, err = q, nil
				}
			}
			switch {
			case errors.Is(err, utils.ErrMissingToken):
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing Authorization header"})
			case err != nil || raw == "":
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid Authorization format"})
			}

			claims, err := tokens.Parse(raw, utils.PurposeAccess)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			active, err := accounts.IsActive(c.Request().Context(), claims.UserID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
			}
			if !active {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account suspended"})
			}

			c.Set(KeyUserID, claims.UserID)
			c.Set(KeyRole, claims.Role)
			return next(c)
		}
	}
}

// UserID returns the authenticated user id, or "" when absent.
func UserID(c echo.Context) string {
	uid, _ := c.Get(KeyUserID).(string)
	return uid
}

// Role returns the authenticated role, or "" when absent.
func Role(c echo.Context) string {
	role, _ := c.Get(KeyRole).(string)
	return role
}
