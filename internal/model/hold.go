package model

import "time"

// Hold is an advisory, in-memory reservation of one seat by a live
// realtime connection.  It is not persisted beyond the "selected" marker
// in the room layout.
type Hold struct {
    ScreeningID uint64
    RoomID      uint64
    Seat        SeatRef
    ConnID      string
    UserID      uint64
    Since       time.Time
    ExpiresAt   time.Time
}
