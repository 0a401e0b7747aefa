package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cineclic/internal/config"
	"github.com/iliyamo/cineclic/internal/handler"
	"github.com/iliyamo/cineclic/internal/logger"
	"github.com/iliyamo/cineclic/internal/model"
	"github.com/iliyamo/cineclic/internal/utils"
)

const secret = "router-secret"

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newServer() *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewValidator()
	l := logger.Discard()
	RegisterRoutes(e, okPinger{})
	RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil, nil, nil, l), secret, passthrough)
	RegisterCatalog(e, Catalog{
		Movies:     handler.NewMovieHandler(nil, nil, l),
		Rooms:      handler.NewRoomHandler(nil, nil, l),
		Screenings: handler.NewScreeningHandler(nil, nil, nil, l),
	}, secret, passthrough, passthrough)
	RegisterBookings(e, handler.NewBookingHandler(nil, nil, l), secret, passthrough)
	return e
}

func token(t *testing.T, role string) string {
	tok, err := utils.NewAccessToken(secret, 1, role, 5)
	require.NoError(t, err)
	return tok.Token
}

func do(e *echo.Echo, method, path, tok string) int {
	req := httptest.NewRequest(method, path, nil)
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestProbes(t *testing.T) {
	e := newServer()
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", ""))
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/readyz", ""))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newServer()
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/v1/me"},
		{http.MethodGet, "/v1/movies"},
		{http.MethodGet, "/v1/screenings/1/seats"},
		{http.MethodPost, "/v1/bookings"},
		{http.MethodPatch, "/v1/bookings/1/cancel"},
		{http.MethodPost, "/v1/rooms"},
	} {
		assert.Equal(t, http.StatusUnauthorized, do(e, r.method, r.path, ""), r.path)
	}
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	e := newServer()
	tok := token(t, model.RoleCustomer)
	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/v1/movies"},
		{http.MethodPut, "/v1/rooms/1"},
		{http.MethodDelete, "/v1/screenings/1"},
		{http.MethodGet, "/v1/screenings/1/bookings"},
	} {
		assert.Equal(t, http.StatusForbidden, do(e, r.method, r.path, tok), r.path)
	}
}

func TestAccountRoutesArePublic(t *testing.T) {
	e := newServer()
	for _, path := range []string{
		"/v1/auth/confirm",
		"/v1/auth/forgot-password",
		"/v1/auth/validate-token",
		"/v1/auth/reset-password",
		"/v1/auth/reset-password/abc",
	} {
		// Empty bodies fail validation before any store is touched.
		assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, path, ""), path)
	}
}
