package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sessionauth/internal/auth"
)

// RequireRole rejects requests whose principal lacks role.  It must run
// after Authenticate.
func RequireRole(role string) echo.MiddlewareFunc {
	return RequireAnyRole(role)
}

// RequireAnyRole rejects requests whose principal holds none of roles.
func RequireAnyRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := auth.RequireAnyRole(Principal(c), roles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}
