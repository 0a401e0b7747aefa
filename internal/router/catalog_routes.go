package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cineclic/internal/handler"
	"github.com/iliyamo/cineclic/internal/middleware"
	"github.com/iliyamo/cineclic/internal/model"
)

// Catalog bundles the handlers of movies, rooms and screenings.
type Catalog struct {
	Movies     *handler.MovieHandler
	Rooms      *handler.RoomHandler
	Screenings *handler.ScreeningHandler
}

// RegisterCatalog registers catalog routes under /v1.  Reads are open to
// any authenticated user; writes require the ADMIN role.  The seat map is
// served through the response cache.
func RegisterCatalog(e *echo.Echo, h Catalog, jwtSecret string, limiter, cache echo.MiddlewareFunc) {
	read := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleCustomer),
		limiter,
	)
	read.GET("/movies", h.Movies.List)
	read.GET("/movies/:id", h.Movies.Get)
	read.GET("/rooms", h.Rooms.List)
	read.GET("/rooms/:id", h.Rooms.Get)
	read.GET("/screenings", h.Screenings.List)
	read.GET("/screenings/:id", h.Screenings.Get)
	read.GET("/screenings/:id/seats", h.Screenings.Seats, cache)

	admin := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
		limiter,
	)
	admin.POST("/movies", h.Movies.Create)
	admin.PUT("/movies/:id", h.Movies.Update)
	admin.DELETE("/movies/:id", h.Movies.Delete)

	admin.POST("/rooms", h.Rooms.Create)
	admin.PUT("/rooms/:id", h.Rooms.Update)
	admin.DELETE("/rooms/:id", h.Rooms.Delete)

	admin.POST("/screenings", h.Screenings.Create)
	admin.PUT("/screenings/:id", h.Screenings.Update)
	admin.DELETE("/screenings/:id", h.Screenings.Delete)
	admin.GET("/screenings/:id/bookings", h.Screenings.ListBookings)
}
