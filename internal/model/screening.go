package model

import "time"

// Screening is a scheduled showing of a movie in a room.  Its start time
// anchors the payment window and the cancellation cutoff.
//
// Fields:
//  ID         - primary key identifier.
//  MovieID    - movie being shown.
//  RoomID     - room hosting the screening.
//  StartTime  - when the screening begins (UTC).
//  EndTime    - when the screening ends, after StartTime.
//  PriceCents - ticket price per seat in cents.
type Screening struct {
    ID         uint64    `json:"id"`          // screenings.id
    MovieID    uint64    `json:"movie_id"`    // screenings.movie_id
    RoomID     uint64    `json:"room_id"`     // screenings.room_id
    StartTime  time.Time `json:"start_time"`  // screenings.start_time
    EndTime    time.Time `json:"end_time"`    // screenings.end_time
    PriceCents uint32    `json:"price_cents"` // screenings.price_cents
    CreatedAt  time.Time `json:"created_at"`  // screenings.created_at
    UpdatedAt  time.Time `json:"updated_at"`  // screenings.updated_at
}

// PaymentDeadline is the moment after which an unpaid booking for this
// screening is swept.
func (s Screening) PaymentDeadline(window time.Duration) time.Time {
    return s.StartTime.Add(-window)
}

// CancellationCutoff is the last moment a customer may cancel.
func (s Screening) CancellationCutoff(cutoff time.Duration) time.Time {
    return s.StartTime.Add(-cutoff)
}
