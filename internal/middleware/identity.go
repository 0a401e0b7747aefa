package middleware

// identity.go holds helpers that read the caller identity stored by
// JWTAuth.  Handlers use UserID and Role; the rate limiter keys buckets by
// identityKey.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id, or false on public routes.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(CtxUserID).(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated role, or "" on public routes.
func Role(c echo.Context) string {
    r, _ := c.Get(CtxRole).(string)
    return r
}

// identityKey is the user id as a string, or "anon".
func identityKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
