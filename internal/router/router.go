// Package router registers the HTTP routes of the service.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sessionauth/internal/auth"
	"github.com/iliyamo/sessionauth/internal/handler"
	"github.com/iliyamo/sessionauth/internal/metrics"
	"github.com/iliyamo/sessionauth/internal/middleware"
	"github.com/iliyamo/sessionauth/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers the credential endpoints under /auth and the
// bearer-protected endpoints.  limiter guards the endpoints that check
// passwords.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn *auth.Authenticator, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth")
	g.POST("/token", a.Token, limiter)
	g.POST("/register", a.Register, limiter)
	g.POST("/refresh", a.Refresh)

	required := middleware.Authenticate(authn.WithAutoError(true))
	g.POST("/logout", a.Logout, required)
	e.GET("/me", a.Me, required)
}

// RegisterUsers registers the admin-only user management endpoints.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, authn *auth.Authenticator) {
	g := e.Group("/users",
		middleware.Authenticate(authn.WithAutoError(true)),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.PATCH("/:id/status", u.SetStatus)
	g.PUT("/:id/roles", u.SetRoles)
	g.DELETE("/:id", u.Delete)
}
