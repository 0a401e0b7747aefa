package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cineclic/internal/handler"
	"github.com/iliyamo/cineclic/internal/middleware"
	"github.com/iliyamo/cineclic/internal/model"
)

// RegisterBookings registers booking endpoints under /v1/bookings.  They
// draw from the smaller booking rate-limit bucket.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleCustomer),
		limiter,
	)
	g.POST("", h.Create)
	g.PATCH("/:id/cancel", h.Cancel)
	g.GET("/mine", h.Mine)
	g.GET("/folio/:folio", h.ByFolio)
}

// RegisterRealtime registers the seat-selection websocket.  The access
// token may come in the token query parameter.
func RegisterRealtime(e *echo.Echo, h *handler.RealtimeHandler, jwtSecret string) {
	e.GET("/v1/ws", h.Serve, middleware.JWTAuth(jwtSecret))
}
