package reservation

import (
	"context"
	"strings"

	"github.com/iliyamo/cineclic/internal/model"
)

// RoomChange describes an edit of a room.  Nil fields are left alone.  A
// non-empty Rows together with Columns rebuilds the grid.
type RoomChange struct {
	Name     *string
	Capacity *int
	Rows     []string
	Columns  int
}

// UpdateRoom applies a change inside the room's exclusive section.  The
// grid can only be rebuilt while no seat is occupied or selected.
func (c *Coordinator) UpdateRoom(ctx context.Context, roomID uint64, ch RoomChange) (*model.Room, error) {
	var out *model.Room
	err := c.inRoom(ctx, roomID, func(op *roomOp) error {
		room := op.room
		if ch.Name != nil {
			name := strings.TrimSpace(*ch.Name)
			if name == "" {
				return newError(KindValidation, "room name cannot be empty")
			}
			room.Name = name
		}
		if ch.Capacity != nil {
			room.Capacity = ch.Capacity
		}
		if len(ch.Rows) > 0 || ch.Columns > 0 {
			if len(ch.Rows) == 0 || ch.Columns < 1 {
				return newError(KindValidation, "rows and columns must be given together")
			}
			if n := room.Layout.Count(model.SeatOccupied) + room.Layout.Count(model.SeatSelected); n > 0 {
				return newError(KindRoomBusy, "room has occupied or selected seats")
			}
			layout := model.NewLayout(ch.Rows, ch.Columns)
			if err := layout.Validate(); err != nil {
				return newError(KindValidation, err.Error())
			}
			room.Layout = layout
		}
		if err := op.SaveRoom(ctx, room); err != nil {
			return internal("save room", err)
		}
		out = room
		return nil
	})
	if KindOf(err) == KindIntegrity {
		return nil, newError(KindNotFound, "room not found")
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
