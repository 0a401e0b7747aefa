package handler

import (
    "context"
    "log/slog"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cineclic/internal/logger"
    "github.com/iliyamo/cineclic/internal/model"
    "github.com/iliyamo/cineclic/internal/repository"
)

// RoomReader loads a room with its layout.
type RoomReader interface {
    GetByID(ctx context.Context, id uint64) (*model.Room, error)
}

// ScreeningBookings lists the bookings of a screening.
type ScreeningBookings interface {
    ListByScreening(ctx context.Context, screeningID uint64) ([]repository.BookingDetail, error)
}

type ScreeningHandler struct {
    Screenings ScreeningStore
    Rooms      RoomReader
    Bookings   ScreeningBookings
    log        *slog.Logger
}

func NewScreeningHandler(s ScreeningStore, r RoomReader, b ScreeningBookings, l *slog.Logger) *ScreeningHandler {
    return &ScreeningHandler{Screenings: s, Rooms: r, Bookings: b, log: logger.Component(l, "screenings")}
}

type screeningReq struct {
    MovieID    uint64    `json:"movie_id" validate:"required"`
    RoomID     uint64    `json:"room_id" validate:"required"`
    StartTime  time.Time `json:"start_time" validate:"required"`
    EndTime    time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
    PriceCents uint32    `json:"price_cents"`
}

func (r screeningReq) apply(s *model.Screening) {
    s.MovieID = r.MovieID
    s.RoomID = r.RoomID
    s.StartTime = r.StartTime.UTC()
    s.EndTime = r.EndTime.UTC()
    s.PriceCents = r.PriceCents
}

// Create handles POST /v1/screenings.  A missing movie or room is a 404.
func (h *ScreeningHandler) Create(c echo.Context) error {
    var req screeningReq
    if err := bindValid(c, &req); err != nil {
        return nil
    }
    var s model.Screening
    req.apply(&s)
    if err := h.Screenings.Create(c.Request().Context(), &s); err != nil {
        return repoError(c, h.log, "movie or room", err)
    }
    return c.JSON(http.StatusCreated, s)
}

// List handles GET /v1/screenings with optional from, to (RFC 3339),
// movie_id and room_id filters.  Results are ordered by start time.
func (h *ScreeningHandler) List(c echo.Context) error {
    var f repository.ScreeningFilter
    for name, dst := range map[string]*uint64{"movie_id": &f.MovieID, "room_id": &f.RoomID} {
        if v := c.QueryParam(name); v != "" {
            n, err := strconv.ParseUint(v, 10, 64)
            if err != nil {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + name})
            }
            *dst = n
        }
    }
    for name, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
        if v := c.QueryParam(name); v != "" {
            t, err := time.Parse(time.RFC3339, v)
            if err != nil {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": name + " must be RFC 3339"})
            }
            *dst = t.UTC()
        }
    }
    list, err := h.Screenings.List(c.Request().Context(), f)
    if err != nil {
        return repoError(c, h.log, "screening", err)
    }
    return c.JSON(http.StatusOK, list)
}

// Get handles GET /v1/screenings/:id.
func (h *ScreeningHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "screening")
    }
    s, err := h.Screenings.GetByID(c.Request().Context(), id)
    if err != nil {
        return repoError(c, h.log, "screening", err)
    }
    return c.JSON(http.StatusOK, s)
}

// Update handles PUT /v1/screenings/:id.  A screening with active bookings
// cannot move to another room; its booked seats live in the old layout.
func (h *ScreeningHandler) Update(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "screening")
    }
    var req screeningReq
    if err := bindValid(c, &req); err != nil {
        return nil
    }
    ctx := c.Request().Context()
    s, err := h.Screenings.GetByID(ctx, id)
    if err != nil {
        return repoError(c, h.log, "screening", err)
    }
    if req.RoomID != s.RoomID {
        bookings, err := h.Bookings.ListByScreening(ctx, id)
        if err != nil {
            return repoError(c, h.log, "booking", err)
        }
        for _, b := range bookings {
            if b.Status == model.BookingActive {
                return c.JSON(http.StatusConflict, echo.Map{"error": "screening has active bookings"})
            }
        }
    }
    req.apply(s)
    if err := h.Screenings.Update(ctx, s); err != nil {
        return repoError(c, h.log, "movie or room", err)
    }
    return c.JSON(http.StatusOK, s)
}

// Delete handles DELETE /v1/screenings/:id.  Screenings with bookings are
// kept.
func (h *ScreeningHandler) Delete(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "screening")
    }
    if err := h.Screenings.Delete(c.Request().Context(), id); err != nil {
        return repoError(c, h.log, "screening", err)
    }
    return c.NoContent(http.StatusNoContent)
}

// seatMap is the public view of a layout.  Holders of selected seats are
// not disclosed.
type seatMap struct {
    ScreeningID uint64                              `json:"screening_id"`
    RoomID      uint64                              `json:"room_id"`
    Rows        []string                            `json:"rows"`
    Columns     []int                               `json:"columns"`
    Seats       map[string]map[int]model.SeatStatus `json:"seats"`
    Counts      map[model.SeatStatus]int            `json:"counts"`
}

func newSeatMap(screeningID uint64, room *model.Room) seatMap {
    l := room.Layout
    m := seatMap{
        ScreeningID: screeningID,
        RoomID:      room.ID,
        Rows:        l.Rows,
        Columns:     l.Columns,
        Seats:       make(map[string]map[int]model.SeatStatus, len(l.Rows)),
        Counts: map[model.SeatStatus]int{
            model.SeatAvailable: l.Count(model.SeatAvailable),
            model.SeatSelected:  l.Count(model.SeatSelected),
            model.SeatOccupied:  l.Count(model.SeatOccupied),
        },
    }
    for _, r := range l.Rows {
        row := make(map[int]model.SeatStatus, len(l.Columns))
        for _, col := range l.Columns {
            row[col] = l.Seats[r][col].Status
        }
        m.Seats[r] = row
    }
    return m
}

// Seats handles GET /v1/screenings/:id/seats.
func (h *ScreeningHandler) Seats(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "screening")
    }
    ctx := c.Request().Context()
    s, err := h.Screenings.GetByID(ctx, id)
    if err != nil {
        return repoError(c, h.log, "screening", err)
    }
    room, err := h.Rooms.GetByID(ctx, s.RoomID)
    if err != nil {
        return repoError(c, h.log, "room", err)
    }
    return c.JSON(http.StatusOK, newSeatMap(id, room))
}

// ListBookings handles GET /v1/screenings/:id/bookings (admin).
func (h *ScreeningHandler) ListBookings(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "screening")
    }
    list, err := h.Bookings.ListByScreening(c.Request().Context(), id)
    if err != nil {
        return repoError(c, h.log, "booking", err)
    }
    return c.JSON(http.StatusOK, list)
}
