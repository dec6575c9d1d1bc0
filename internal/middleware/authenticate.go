// Package middleware adapts the authentication pipeline and shared request
// processing to echo.
package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sessionauth/internal/auth"
	"github.com/iliyamo/sessionauth/internal/metrics"
	"github.com/iliyamo/sessionauth/internal/model"
)

const principalKey = "principal"

// Authenticate runs a on the Authorization header and stores the
// principal in the context.  Failures are returned to echo's error handler.
func Authenticate(a *auth.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := a.Authenticate(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
			metrics.RecordAuthentication(outcome(p, err))
			if err != nil {
				return err
			}
			if p != nil {
				c.Set(principalKey, p)
			}
			return next(c)
		}
	}
}

func outcome(p *model.User, err error) string {
	var ae *model.AuthError
	switch {
	case errors.As(err, &ae):
		return ae.Kind.String()
	case err != nil:
		return metrics.ResultUnavailable
	case p == nil:
		return metrics.ResultAnonymous
	}
	return metrics.ResultAuthenticated
}

// Principal returns the authenticated user, or nil on anonymous requests.
func Principal(c echo.Context) *model.User {
	p, _ := c.Get(principalKey).(*model.User)
	return p
}
