package handler

import (
    "context"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cineclic/internal/logger"
    "github.com/iliyamo/cineclic/internal/middleware"
    "github.com/iliyamo/cineclic/internal/model"
    "github.com/iliyamo/cineclic/internal/repository"
    "github.com/iliyamo/cineclic/internal/reservation"
)

// BookingService is the part of the coordinator that books and cancels.
type BookingService interface {
    CreateBooking(ctx context.Context, userID, screeningID uint64, seats []model.SeatRef) (*model.Booking, error)
    CancelBooking(ctx context.Context, userID, bookingID uint64, confirm bool) (*reservation.CancelOutcome, error)
}

// BookingReader serves the read side of bookings.
type BookingReader interface {
    ListByUser(ctx context.Context, userID uint64) ([]repository.BookingDetail, error)
    GetDetailByFolio(ctx context.Context, folio string) (*repository.BookingDetail, error)
}

// BookingHandler exposes customer booking endpoints.  Every route sits
// behind JWTAuth.
type BookingHandler struct {
    Service  BookingService
    Bookings BookingReader
    log      *slog.Logger
}

func NewBookingHandler(s BookingService, r BookingReader, l *slog.Logger) *BookingHandler {
    return &BookingHandler{Service: s, Bookings: r, log: logger.Component(l, "bookings")}
}

type createBookingReq struct {
    ScreeningID uint64          `json:"screening_id" validate:"required"`
    Seats       []model.SeatRef `json:"seats" validate:"required,min=1,dive"`
}

type cancelReq struct {
    Confirm bool `json:"confirm"`
}

// Create handles POST /v1/bookings.  Seat limits and availability are
// enforced by the coordinator; a conflict lists the offending seats.
func (h *BookingHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createBookingReq
    if err := bindValid(c, &req); err != nil {
        return nil
    }
    b, err := h.Service.CreateBooking(c.Request().Context(), userID, req.ScreeningID, req.Seats)
    if err != nil {
        return reservationError(c, h.log, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// Cancel handles PATCH /v1/bookings/:id/cancel.  Without confirm=true the
// booking is left alone and a confirmation prompt is returned.
func (h *BookingHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return badID(c, "booking")
    }
    var req cancelReq
    if c.Request().ContentLength != 0 {
        if err := c.Bind(&req); err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
        }
    }
    out, err := h.Service.CancelBooking(c.Request().Context(), userID, id, req.Confirm)
    if err != nil {
        return reservationError(c, h.log, err)
    }
    if out.ConfirmRequired {
        return c.JSON(http.StatusOK, echo.Map{"confirm_required": true, "message": out.Message})
    }
    return c.JSON(http.StatusOK, out.Booking)
}

// Mine handles GET /v1/bookings/mine.
func (h *BookingHandler) Mine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.Bookings.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return repoError(c, h.log, "booking", err)
    }
    return c.JSON(http.StatusOK, list)
}

// ByFolio handles GET /v1/bookings/folio/:folio.  Only the owner or an
// admin may read a booking.
func (h *BookingHandler) ByFolio(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    folio := c.Param("folio")
    if !reservation.ValidFolio(folio) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "folio must look like 0000-0000"})
    }
    d, err := h.Bookings.GetDetailByFolio(c.Request().Context(), folio)
    if err != nil {
        return repoError(c, h.log, "booking", err)
    }
    if d.UserID != userID && middleware.Role(c) != model.RoleAdmin {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    return c.JSON(http.StatusOK, d)
}
