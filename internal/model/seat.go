package model

import (
    "database/sql/driver"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"
)

// SeatStatus is the state of one seat in a room layout.
type SeatStatus string

const (
    SeatAvailable SeatStatus = "available"
    SeatOccupied  SeatStatus = "occupied"
    SeatSelected  SeatStatus = "selected"
)

// SeatRef addresses a seat by row label and column number.  Bookings keep
// seats as a copy of these pairs rather than a pointer into the layout.
type SeatRef struct {
    Row    string `json:"row" validate:"required,max=3"`
    Column int    `json:"column" validate:"required,min=1"`
}

// Normalize upper-cases and trims the row label.
func (s SeatRef) Normalize() SeatRef {
    return SeatRef{Row: strings.ToUpper(strings.TrimSpace(s.Row)), Column: s.Column}
}

// String renders the seat the way it is printed on tickets, e.g. "A7".
func (s SeatRef) String() string { return fmt.Sprintf("%s%d", s.Row, s.Column) }

// SeatRefs is a JSON-encoded list of seats stored in bookings.seats.
type SeatRefs []SeatRef

// Labels returns the printable labels of the seats.
func (s SeatRefs) Labels() []string {
    out := make([]string, 0, len(s))
    for _, ref := range s {
        out = append(out, ref.String())
    }
    return out
}

// Value implements driver.Valuer.
func (s SeatRefs) Value() (driver.Value, error) {
    if s == nil {
        return "[]", nil
    }
    b, err := json.Marshal([]SeatRef(s))
    if err != nil {
        return nil, err
    }
    return string(b), nil
}

// Scan implements sql.Scanner.
func (s *SeatRefs) Scan(src any) error {
    b, err := jsonBytes(src)
    if err != nil {
        return err
    }
    if len(b) == 0 {
        *s = SeatRefs{}
        return nil
    }
    return json.Unmarshal(b, (*[]SeatRef)(s))
}

// SeatState is the value stored for every seat of a layout.  Available and
// occupied seats encode as plain strings; a selected seat encodes as an
// object naming the connection that holds it and when the hold started.
//
// Fields:
//  Status – available, occupied or selected.
//  HeldBy – realtime connection id owning a selected seat.
//  UserID – authenticated user behind HeldBy.
//  Since  – when the seat was selected (UTC).
type SeatState struct {
    Status SeatStatus
    HeldBy string
    UserID uint64
    Since  time.Time
}

// Available is the state of a free seat.
func Available() SeatState { return SeatState{Status: SeatAvailable} }

// Occupied is the state of a seat taken by an active booking.
func Occupied() SeatState { return SeatState{Status: SeatOccupied} }

// Selected is the state of a seat held by a live connection.
func Selected(heldBy string, userID uint64, since time.Time) SeatState {
    return SeatState{Status: SeatSelected, HeldBy: heldBy, UserID: userID, Since: since.UTC()}
}

// IsHeldBy reports whether the seat is selected by the given connection.
func (s SeatState) IsHeldBy(conn string) bool {
    return s.Status == SeatSelected && s.HeldBy == conn
}

type selectedJSON struct {
    State  SeatStatus `json:"state"`
    HeldBy string     `json:"heldBy"`
    UserID uint64     `json:"userId,omitempty"`
    Since  time.Time  `json:"since"`
}

// MarshalJSON implements json.Marshaler.
func (s SeatState) MarshalJSON() ([]byte, error) {
    if s.Status == SeatSelected {
        return json.Marshal(selectedJSON{State: SeatSelected, HeldBy: s.HeldBy, UserID: s.UserID, Since: s.Since})
    }
    if s.Status == "" {
        return json.Marshal(SeatAvailable)
    }
    return json.Marshal(string(s.Status))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SeatState) UnmarshalJSON(b []byte) error {
    var plain string
    if err := json.Unmarshal(b, &plain); err == nil {
        switch SeatStatus(plain) {
        case SeatAvailable, SeatOccupied:
            *s = SeatState{Status: SeatStatus(plain)}
            return nil
        }
        return fmt.Errorf("unknown seat state %q", plain)
    }
    var sel selectedJSON
    if err := json.Unmarshal(b, &sel); err != nil {
        return err
    }
    if sel.State != SeatSelected {
        return fmt.Errorf("unknown seat state %q", sel.State)
    }
    *s = SeatState{Status: SeatSelected, HeldBy: sel.HeldBy, UserID: sel.UserID, Since: sel.Since}
    return nil
}

func jsonBytes(src any) ([]byte, error) {
    switch v := src.(type) {
    case nil:
        return nil, nil
    case []byte:
        return v, nil
    case string:
        return []byte(v), nil
    }
    return nil, errors.New("unsupported json column type")
}
