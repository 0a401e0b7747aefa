package model

import (
    "database/sql/driver"
    "encoding/json"
    "fmt"
)

// Layout is the seat grid of a room.  Every (row, column) pair of Rows x
// Columns has exactly one entry in Seats.  The document is persisted as a
// JSON column of the rooms table and always read, modified and written
// back as a unit.
type Layout struct {
    Rows    []string                     `json:"rows"`
    Columns []int                        `json:"columns"`
    Seats   map[string]map[int]SeatState `json:"seats"`
}

// NewLayout builds an all-available grid with the given row labels and
// columns numbered 1..columns.
func NewLayout(rows []string, columns int) Layout {
    l := Layout{
        Rows:    make([]string, 0, len(rows)),
        Columns: make([]int, 0, columns),
        Seats:   make(map[string]map[int]SeatState, len(rows)),
    }
    for c := 1; c <= columns; c++ {
        l.Columns = append(l.Columns, c)
    }
    for _, r := range rows {
        row := SeatRef{Row: r}.Normalize().Row
        l.Rows = append(l.Rows, row)
        cols := make(map[int]SeatState, columns)
        for _, c := range l.Columns {
            cols[c] = Available()
        }
        l.Seats[row] = cols
    }
    return l
}

// State returns the state of a seat and whether the seat exists.
func (l Layout) State(seat SeatRef) (SeatState, bool) {
    cols, ok := l.Seats[seat.Row]
    if !ok {
        return SeatState{}, false
    }
    st, ok := cols[seat.Column]
    return st, ok
}

// Set overwrites the state of an existing seat.  It reports false when the
// seat is not part of the grid.
func (l Layout) Set(seat SeatRef, st SeatState) bool {
    cols, ok := l.Seats[seat.Row]
    if !ok {
        return false
    }
    if _, ok := cols[seat.Column]; !ok {
        return false
    }
    cols[seat.Column] = st
    return true
}

// Clone returns a deep copy so callers can mutate without touching the
// original document.
func (l Layout) Clone() Layout {
    out := Layout{
        Rows:    append([]string(nil), l.Rows...),
        Columns: append([]int(nil), l.Columns...),
        Seats:   make(map[string]map[int]SeatState, len(l.Seats)),
    }
    for r, cols := range l.Seats {
        cp := make(map[int]SeatState, len(cols))
        for c, st := range cols {
            cp[c] = st
        }
        out.Seats[r] = cp
    }
    return out
}

// Capacity is the number of seats in the grid.
func (l Layout) Capacity() int { return len(l.Rows) * len(l.Columns) }

// Count returns how many seats are in the given status.
func (l Layout) Count(status SeatStatus) int {
    n := 0
    for _, cols := range l.Seats {
        for _, st := range cols {
            if st.Status == status {
                n++
            }
        }
    }
    return n
}

// HeldBy lists the seats currently selected by a connection.
func (l Layout) HeldBy(conn string) []SeatRef {
    var out []SeatRef
    for _, r := range l.Rows {
        for _, c := range l.Columns {
            if st := l.Seats[r][c]; st.IsHeldBy(conn) {
                out = append(out, SeatRef{Row: r, Column: c})
            }
        }
    }
    return out
}

// Validate checks that the grid is complete and carries no stray entries.
func (l Layout) Validate() error {
    if len(l.Rows) == 0 || len(l.Columns) == 0 {
        return fmt.Errorf("layout must have at least one row and one column")
    }
    if len(l.Seats) != len(l.Rows) {
        return fmt.Errorf("layout has %d seat rows, want %d", len(l.Seats), len(l.Rows))
    }
    for _, r := range l.Rows {
        cols, ok := l.Seats[r]
        if !ok {
            return fmt.Errorf("row %s missing from layout", r)
        }
        if len(cols) != len(l.Columns) {
            return fmt.Errorf("row %s has %d seats, want %d", r, len(cols), len(l.Columns))
        }
        for _, c := range l.Columns {
            if _, ok := cols[c]; !ok {
                return fmt.Errorf("seat %s%d missing from layout", r, c)
            }
        }
    }
    return nil
}

// Value implements driver.Valuer.
func (l Layout) Value() (driver.Value, error) {
    b, err := json.Marshal(l)
    if err != nil {
        return nil, err
    }
    return string(b), nil
}

// Scan implements sql.Scanner.
func (l *Layout) Scan(src any) error {
    b, err := jsonBytes(src)
    if err != nil {
        return err
    }
    if len(b) == 0 {
        *l = Layout{Seats: map[string]map[int]SeatState{}}
        return nil
    }
    return json.Unmarshal(b, l)
}
