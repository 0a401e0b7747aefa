package handler

import (
    "context"
    "log/slog"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cineclic/internal/logger"
    "github.com/iliyamo/cineclic/internal/model"
    "github.com/iliyamo/cineclic/internal/reservation"
)

// RoomStore is the room persistence used by RoomHandler.  Updates go
// through the coordinator because they touch the layout.
type RoomStore interface {
    Create(ctx context.Context, room *model.Room) error
    GetByID(ctx context.Context, id uint64) (*model.Room, error)
    List(ctx context.Context) ([]model.Room, error)
    Delete(ctx context.Context, id uint64) error
}

// RoomUpdater edits a room inside its exclusive section.
type RoomUpdater interface {
    UpdateRoom(ctx context.Context, roomID uint64, ch reservation.RoomChange) (*model.Room, error)
}

type RoomHandler struct {
    Rooms   RoomStore
    Updater RoomUpdater
    log     *slog.Logger
}

func NewRoomHandler(r RoomStore, u RoomUpdater, l *slog.Logger) *RoomHandler {
    return &RoomHandler{Rooms: r, Updater: u, log: logger.Component(l, "rooms")}
}

type createRoomReq struct {
    Name     string   `json:"name" validate:"required,max=100"`
    Capacity *int     `json:"capacity" validate:"omitempty,min=1"`
    Rows     []string `json:"rows" validate:"required,min=1,max=26,dive,required,max=3,alpha"`
    Columns  int      `json:"columns" validate:"required,min=1,max=50"`
}

type updateRoomReq struct {
    Name     *string  `json:"name" validate:"omitempty,max=100"`
    Capacity *int     `json:"capacity" validate:"omitempty,min=1"`
    Rows     []string `json:"rows" validate:"omitempty,max=26,dive,required,max=3,alpha"`
    Columns  int      `json:"columns" validate:"omitempty,min=1,max=50"`
}

// uniqueRows upper-cases labels and reports a duplicate.
func uniqueRows(rows []string) ([]string, bool) {
    seen := make(map[string]bool, len(rows))
    out := make([]string, 0, len(rows))
    for _, r := range rows {
        r = strings.ToUpper(strings.TrimSpace(r))
        if seen[r] {
            return nil, false
        }
        seen[r] = true
        out = append(out, r)
    }
    return out, true
}

// Create handles POST /v1/rooms and builds an all-available layout.
func (h *RoomHandler) Create(c echo.Context) error {
    var req createRoomReq
    if err := bindValid(c, &req); err != nil {
        return nil
    }
    rows, ok := uniqueRows(req.Rows)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "row labels must be unique"})
    }
    room := model.Room{
        Name:     strings.TrimSpace(req.Name),
        Capacity: req.Capacity,
        Layout:   model.NewLayout(rows, req.Columns),
    }
    if err := h.Rooms.Create(c.Request().Context(), &room); err != nil {
        return repoError(c, h.log, "room", err)
    }
    return c.JSON(http.StatusCreated, room)
}

// List handles GET /v1/rooms.
func (h *RoomHandler) List(c echo.Context) error {
    rooms, err := h.Rooms.List(c.Request().Context())
    if err != nil {
        return repoError(c, h.log, "room", err)
    }
    return c.JSON(http.StatusOK, rooms)
}

// Get handles GET /v1/rooms/:id.
func (h *RoomHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "room")
    }
    room, err := h.Rooms.GetByID(c.Request().Context(), id)
    if err != nil {
        return repoError(c, h.log, "room", err)
    }
    return c.JSON(http.StatusOK, room)
}

// Update handles PUT /v1/rooms/:id.  Reshaping the grid is refused with 409
// while any seat is occupied or selected.
func (h *RoomHandler) Update(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "room")
    }
    var req updateRoomReq
    if err := bindValid(c, &req); err != nil {
        return nil
    }
    ch := reservation.RoomChange{Name: req.Name, Capacity: req.Capacity, Columns: req.Columns}
    if len(req.Rows) > 0 {
        rows, ok := uniqueRows(req.Rows)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "row labels must be unique"})
        }
        ch.Rows = rows
    }
    room, err := h.Updater.UpdateRoom(c.Request().Context(), id, ch)
    if err != nil {
        return reservationError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, room)
}

// Delete handles DELETE /v1/rooms/:id.  Rooms with screenings are kept.
func (h *RoomHandler) Delete(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "room")
    }
    if err := h.Rooms.Delete(c.Request().Context(), id); err != nil {
        return repoError(c, h.log, "room", err)
    }
    return c.NoContent(http.StatusNoContent)
}
