package middleware

import (
    "log/slog"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cineclic/internal/logger"
)

// RequestLog assigns every request an X-Request-ID, reusing the client's
// when present, and writes one access log line when it completes.
func RequestLog(l *slog.Logger) echo.MiddlewareFunc {
    log := logger.Component(l, "http")
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            rid := c.Request().Header.Get(echo.HeaderXRequestID)
            if rid == "" {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, rid)

            err := next(c)
            if err != nil {
                // Let the error handler write the response so the status is final.
                c.Error(err)
            }

            status := c.Response().Status
            attrs := []any{
                "request_id", rid,
                "method", c.Request().Method,
                "path", c.Request().URL.Path,
                "status", status,
                "latency_ms", time.Since(start).Milliseconds(),
                "ip", c.RealIP(),
            }
            if uid, ok := UserID(c); ok {
                attrs = append(attrs, "user_id", uid)
            }
            switch {
            case status >= 500:
                log.Error("request", append(attrs, "err", err)...)
            case status >= 400:
                log.Warn("request", attrs...)
            default:
                log.Info("request", attrs...)
            }
            return nil
        }
    }
}
