// Package queue defines the notification events exchanged over the message
// broker, the publishers that emit them and the consumers that turn them
// into customer emails.
package queue

import "time"

// Routing keys.  With RabbitMQ these are durable queue names; with Kafka
// they are topic names.
const (
    TopicBookingConfirmed = "booking.confirmed"
    TopicBookingCancelled = "booking.cancelled"
)

// Cancellation reasons carried by BookingCancelledEvent.
const (
    ReasonCustomer        = "customer"
    ReasonPaymentDeadline = "payment_deadline"
)

// BookingConfirmedEvent is published after a booking commits.  It carries
// everything the confirmation email needs so consumers never query the
// primary database.
type BookingConfirmedEvent struct {
    BookingID       uint64    `json:"booking_id"`
    Folio           string    `json:"folio"`
    UserID          uint64    `json:"user_id"`
    UserName        string    `json:"user_name"`
    UserEmail       string    `json:"user_email"`
    ScreeningID     uint64    `json:"screening_id"`
    MovieTitle      string    `json:"movie_title"`
    RoomName        string    `json:"room_name"`
    StartsAt        time.Time `json:"starts_at"`
    SeatLabels      []string  `json:"seats"`
    TotalCents      uint32    `json:"total_cents"`
    PaymentDeadline time.Time `json:"payment_deadline"`
    Message         string    `json:"message"`
    ConfirmedAt     time.Time `json:"confirmed_at"`
}

// BookingCancelledEvent is published after a booking moves to CANCELADA,
// whether the customer cancelled it or the deadline sweep did.
type BookingCancelledEvent struct {
    BookingID   uint64    `json:"booking_id"`
    Folio       string    `json:"folio"`
    UserID      uint64    `json:"user_id"`
    UserName    string    `json:"user_name"`
    UserEmail   string    `json:"user_email"`
    ScreeningID uint64    `json:"screening_id"`
    SeatLabels  []string  `json:"seats"`
    Reason      string    `json:"reason"`
    Message     string    `json:"message"`
    CancelledAt time.Time `json:"cancelled_at"`
}

// Key is the partition key used by Kafka and the correlation id used by
// RabbitMQ.
func (e BookingConfirmedEvent) Key() string { return e.Folio }

func (e BookingCancelledEvent) Key() string { return e.Folio }
