// Package realtime carries the seat-selection channel: websocket clients
// join screenings, select and deselect seats, and receive seat updates
// fanned out across instances through Redis.
package realtime

import (
	"encoding/json"

	"github.com/iliyamo/cineclic/internal/model"
)

// Client to server events.
const (
	EventJoin     = "screening:join"
	EventLeave    = "screening:leave"
	EventSelect   = "seat:select"
	EventDeselect = "seat:deselect"
)

// Server to client events.
const (
	EventJoined = "screening:joined"
	EventUpdate = "seat:update"
	EventError  = "seat:error"
)

// Envelope frames every websocket message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ScreeningPayload is the data of join and leave.
type ScreeningPayload struct {
	ScreeningID uint64 `json:"screeningId"`
}

// SeatPayload is the data of select and deselect.
type SeatPayload struct {
	ScreeningID uint64        `json:"screeningId"`
	Seat        model.SeatRef `json:"seat"`
}

// ErrorPayload reports a rejected client event.
type ErrorPayload struct {
	Event string   `json:"event"`
	Kind  string   `json:"kind"`
	Error string   `json:"error"`
	Seats []string `json:"seats,omitempty"`
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
