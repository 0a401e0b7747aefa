package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/cineclic/internal/model"
)

// HoldRequest identifies a seat selection made over a realtime connection.
type HoldRequest struct {
	ScreeningID uint64
	Seat        model.SeatRef
	ConnID      string
	UserID      uint64
}

func (r HoldRequest) validate() (HoldRequest, error) {
	r.Seat = r.Seat.Normalize()
	if r.ScreeningID == 0 || r.ConnID == "" || r.Seat.Row == "" || r.Seat.Column < 1 {
		return r, newError(KindValidation, "screening, seat and connection are required")
	}
	return r, nil
}

// SelectSeat marks an available seat as selected by the connection and arms
// its expiry timer.  Selecting a seat the connection already holds
// restarts the hold.  Other viewers of the screening are told.
func (c *Coordinator) SelectSeat(ctx context.Context, req HoldRequest) (SeatUpdate, error) {
	req, err := req.validate()
	if err != nil {
		return SeatUpdate{}, err
	}
	scr, err := c.screening(ctx, req.ScreeningID)
	if err != nil {
		return SeatUpdate{}, err
	}
	since := c.heldSince()
	hold := model.Hold{
		ScreeningID: req.ScreeningID,
		RoomID:      scr.RoomID,
		Seat:        req.Seat,
		ConnID:      req.ConnID,
		UserID:      req.UserID,
		Since:       since,
		ExpiresAt:   since.Add(c.cfg.HoldTTL),
	}
	err = c.inRoom(ctx, scr.RoomID, func(op *roomOp) error {
		st, ok := op.room.Layout.State(req.Seat)
		if !ok || (st.Status != model.SeatAvailable && !st.IsHeldBy(req.ConnID)) {
			return conflict([]string{req.Seat.String()})
		}
		op.set(req.Seat, model.Selected(req.ConnID, req.UserID, since))
		op.afterCommit(func() {
			c.holds.arm(hold, c.cfg.HoldTTL, c.expireHold)
			c.broadcast(req.ScreeningID, []model.SeatRef{req.Seat}, model.SeatSelected, req.ConnID)
		})
		return nil
	})
	if err != nil {
		return SeatUpdate{}, err
	}
	c.log.Debug("seat selected", "screening_id", req.ScreeningID, "seat", req.Seat.String(), "conn", req.ConnID)
	return SeatUpdate{ScreeningID: req.ScreeningID, Seat: req.Seat, State: model.SeatSelected}, nil
}

// DeselectSeat releases a seat held by the connection.  Only the holding
// connection may release it.
func (c *Coordinator) DeselectSeat(ctx context.Context, req HoldRequest) (SeatUpdate, error) {
	req, err := req.validate()
	if err != nil {
		return SeatUpdate{}, err
	}
	scr, err := c.store.Screening(ctx, req.ScreeningID)
	if err != nil {
		return SeatUpdate{}, c.reference("screening", err)
	}
	err = c.inRoom(ctx, scr.RoomID, func(op *roomOp) error {
		st, ok := op.room.Layout.State(req.Seat)
		switch {
		case !ok || st.Status != model.SeatSelected:
			return &Error{Kind: KindSeatConflict, Message: "seat is not selected", Seats: []string{req.Seat.String()}}
		case st.HeldBy != req.ConnID:
			return newError(KindUnauthorized, "seat is held by another viewer")
		}
		op.set(req.Seat, model.Available())
		op.afterCommit(func() {
			c.holds.cancel(req.ScreeningID, req.Seat, req.ConnID)
			c.broadcast(req.ScreeningID, []model.SeatRef{req.Seat}, model.SeatAvailable, req.ConnID)
		})
		return nil
	})
	if err != nil {
		return SeatUpdate{}, err
	}
	return SeatUpdate{ScreeningID: req.ScreeningID, Seat: req.Seat, State: model.SeatAvailable}, nil
}

// expireHold runs when a hold timer fires.  The seat reverts only while it
// still carries this exact hold; a booking or a newer selection wins.
func (c *Coordinator) expireHold(h model.Hold) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := c.inRoom(ctx, h.RoomID, func(op *roomOp) error {
		st, ok := op.room.Layout.State(h.Seat)
		if !ok || !st.IsHeldBy(h.ConnID) || !st.Since.Equal(h.Since) {
			return errNoop
		}
		op.set(h.Seat, model.Available())
		op.afterCommit(func() {
			c.broadcast(h.ScreeningID, []model.SeatRef{h.Seat}, model.SeatAvailable, "")
		})
		return nil
	})
	switch {
	case err == nil:
		c.log.Info("hold expired", "screening_id", h.ScreeningID, "seat", h.Seat.String(), "conn", h.ConnID)
	case errors.Is(err, errNoop):
	default:
		c.log.Error("hold expiry failed", "screening_id", h.ScreeningID, "seat", h.Seat.String(), "err", err)
	}
}

// ReleaseConnection frees every seat held by a connection that went away.
// Failures for one room are logged and do not stop the others.  It
// returns the number of seats released.
func (c *Coordinator) ReleaseConnection(ctx context.Context, connID string) int {
	holds := c.holds.takeConn(connID)
	if len(holds) == 0 {
		return 0
	}
	byRoom := make(map[uint64][]model.Hold)
	var order []uint64
	for _, h := range holds {
		if _, ok := byRoom[h.RoomID]; !ok {
			order = append(order, h.RoomID)
		}
		byRoom[h.RoomID] = append(byRoom[h.RoomID], h)
	}
	total := 0
	for _, roomID := range order {
		roomHolds := byRoom[roomID]
		err := c.inRoom(ctx, roomID, func(op *roomOp) error {
			released := make(map[uint64][]model.SeatRef)
			for _, h := range roomHolds {
				if st, ok := op.room.Layout.State(h.Seat); ok && st.IsHeldBy(connID) {
					op.set(h.Seat, model.Available())
					released[h.ScreeningID] = append(released[h.ScreeningID], h.Seat)
				}
			}
			if !op.dirty {
				return errNoop
			}
			op.afterCommit(func() {
				for scrID, seats := range released {
					total += len(seats)
					c.broadcast(scrID, seats, model.SeatAvailable, connID)
				}
			})
			return nil
		})
		if err != nil && !errors.Is(err, errNoop) {
			c.log.Error("release connection holds failed", "conn", connID, "room_id", roomID, "err", err)
		}
	}
	if total > 0 {
		c.log.Info("connection holds released", "conn", connID, "seats", total)
	}
	return total
}

// ActiveHolds is the number of armed hold timers.
func (c *Coordinator) ActiveHolds() int { return c.holds.count() }
