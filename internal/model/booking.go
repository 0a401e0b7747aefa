package model

import "time"

// BookingStatus is the lifecycle state of a booking.  A booking is created
// ACTIVA and may move to CANCELADA exactly once; it never moves back.
type BookingStatus string

const (
    BookingActive    BookingStatus = "ACTIVA"
    BookingCancelled BookingStatus = "CANCELADA"
)

// IsValid reports whether s is a known status.
func (s BookingStatus) IsValid() bool {
    return s == BookingActive || s == BookingCancelled
}

// Booking records seats taken for a screening by one user.
//
// Fields:
//  ID          - primary key identifier.
//  Folio       - public reference, format XXXX-XXXX, globally unique.
//  BookingDate - when the booking was made.
//  Status      - ACTIVA or CANCELADA.
//  Seats       - copy of the booked (row, column) pairs.
//  UserID      - owner of the booking.
//  ScreeningID - screening the seats belong to.
type Booking struct {
    ID          uint64        `json:"id"`           // bookings.id
    Folio       string        `json:"folio"`        // bookings.folio
    BookingDate time.Time     `json:"booking_date"` // bookings.booking_date
    Status      BookingStatus `json:"status"`       // bookings.status
    Seats       SeatRefs      `json:"seats"`        // bookings.seats
    UserID      uint64        `json:"user_id"`      // bookings.user_id
    ScreeningID uint64        `json:"screening_id"` // bookings.screening_id
    CreatedAt   time.Time     `json:"created_at"`   // bookings.created_at
    UpdatedAt   time.Time     `json:"updated_at"`   // bookings.updated_at
}

// IsCancelled reports whether the booking reached its terminal state.
func (b Booking) IsCancelled() bool { return b.Status == BookingCancelled }
