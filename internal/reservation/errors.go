package reservation

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies coordinator failures.  Handlers map kinds to HTTP status
// codes and realtime clients receive the kind name in seat:error events.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindScreeningUnavailable
	KindSeatConflict
	KindUnauthorized
	KindAlreadyCancelled
	KindCancellationClosed
	KindNotFound
	// KindRoomBusy rejects reshaping a room whose seats are in use.
	KindRoomBusy
	// KindIntegrity marks a row that a foreign key says must exist but
	// does not, such as the movie of a screening being booked.
	KindIntegrity
)

var kindNames = map[Kind]string{
	KindInternal:             "InternalError",
	KindValidation:           "ValidationError",
	KindScreeningUnavailable: "ScreeningUnavailable",
	KindSeatConflict:         "SeatConflict",
	KindUnauthorized:         "Unauthorized",
	KindAlreadyCancelled:     "AlreadyCancelled",
	KindCancellationClosed:   "CancellationClosed",
	KindNotFound:             "NotFound",
	KindRoomBusy:             "RoomBusy",
	KindIntegrity:            "NotFound",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is returned by every coordinator operation.  Seats lists the
// offending seat labels of a SeatConflict.
type Error struct {
	Kind    Kind
	Message string
	Seats   []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Seats) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Seats, ","))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

func conflict(seats []string) *Error {
	return &Error{Kind: KindSeatConflict, Message: "seats are not available", Seats: seats}
}
