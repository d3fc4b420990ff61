package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const roleAdmin = "admin"

// RequireRoles rejects callers whose token role is not in roles. It must
// run after JWTMiddleware.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := Role(c)
			if role == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "role missing"})
			}
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "not allowed for role " + role})
			}
			return next(c)
		}
	}
}

var adminOnly = RequireRoles(roleAdmin)

// AdminGuard is RequireRoles("admin") in the plain form echo groups accept.
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return adminOnly(next)
}
