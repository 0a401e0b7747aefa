package handler

import (
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cineclic/internal/logger"
    "github.com/iliyamo/cineclic/internal/realtime"
)

// RealtimeHandler upgrades authenticated requests to the seat-selection
// websocket.
type RealtimeHandler struct {
    Hub *realtime.Hub
    log *slog.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, l *slog.Logger) *RealtimeHandler {
    return &RealtimeHandler{Hub: hub, log: logger.Component(l, "realtime")}
}

// Serve handles GET /v1/ws.  It blocks for the life of the connection.
func (h *RealtimeHandler) Serve(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    if err := h.Hub.ServeWS(c.Response(), c.Request(), userID); err != nil {
        // The upgrader has already answered the client.
        h.log.Debug("websocket upgrade failed", "user_id", userID, "err", err)
    }
    return nil
}
