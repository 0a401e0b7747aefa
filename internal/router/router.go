package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cineclic/internal/handler"
	"github.com/iliyamo/cineclic/internal/middleware"
	"github.com/iliyamo/cineclic/internal/model"
)

// RegisterRoutes registers the unauthenticated probes: /healthz for
// liveness and /readyz, which also pings the database.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers authentication routes.  Everything under /v1/auth
// works without a session, including account confirmation and password
// reset; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Logout accepts either a refresh token in the body or a bearer token,
	// so it sits outside the JWT group.
	g.POST("/logout", a.Logout)

	g.GET("/confirm/:token", a.Confirm)
	g.POST("/confirm", a.Confirm)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/validate-token", a.ValidateToken)
	g.POST("/reset-password/:token", a.ResetPassword)
	g.POST("/reset-password", a.ResetPassword)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin, model.RoleCustomer))
	auth.GET("/me", a.Me)
}
