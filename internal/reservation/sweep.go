package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/cineclic/internal/model"
	"github.com/iliyamo/cineclic/internal/queue"
	"github.com/iliyamo/cineclic/internal/repository"
)

// SweepReport summarizes one deadline sweep tick.
type SweepReport struct {
	Due        int `json:"due"`
	Cancelled  int `json:"cancelled"`
	Failed     int `json:"failed"`
	StaleHolds int `json:"stale_holds"`
}

// SweepDeadlines cancels every ACTIVA booking whose screening starts
// within the payment window, or has already started, and frees its seats.
// Screenings missed by earlier ticks are caught on the next one.  A failing booking is
// logged and counted; the rest of the tick still runs.  The tick ignores
// cancellation of ctx once it has listed the due bookings.
//
// Afterwards it clears selections older than the hold TTL that no live
// timer in this process covers, which is what a restart leaves behind.
func (c *Coordinator) SweepDeadlines(ctx context.Context) (SweepReport, error) {
	now := c.now()
	due, err := c.store.DueBookings(ctx, now.Add(c.cfg.PaymentWindow))
	if err != nil {
		return SweepReport{}, internal("list due bookings", err)
	}
	ctx = context.WithoutCancel(ctx)
	rep := SweepReport{Due: len(due)}
	for i := range due {
		d := due[i]
		_, err := c.cancelInRoom(ctx, d.RoomID, d.ID)
		switch {
		case err == nil:
			rep.Cancelled++
			b := d.Booking
			b.Status = model.BookingCancelled
			c.log.Info("unpaid booking cancelled", "folio", b.Folio, "booking_id", b.ID, "starts_at", d.StartTime)
			c.notifyCancelled(&b, queue.ReasonPaymentDeadline,
				"Your booking was cancelled because the payment was not completed before the deadline.")
		case errors.Is(err, errNoop):
		default:
			rep.Failed++
			c.log.Error("sweep booking failed", "booking_id", d.ID, "room_id", d.RoomID, "err", err)
		}
	}
	rep.StaleHolds = c.releaseStaleHolds(ctx, now)
	c.log.Info("deadline sweep finished", "due", rep.Due, "cancelled", rep.Cancelled,
		"failed", rep.Failed, "stale_holds", rep.StaleHolds)
	return rep, nil
}

func (c *Coordinator) releaseStaleHolds(ctx context.Context, now time.Time) int {
	ids, err := c.store.RoomIDs(ctx)
	if err != nil {
		c.log.Error("list rooms for stale holds failed", "err", err)
		return 0
	}
	total := 0
	for _, roomID := range ids {
		var released []model.SeatRef
		err := c.inRoom(ctx, roomID, func(op *roomOp) error {
			l := op.room.Layout
			for _, r := range l.Rows {
				for _, col := range l.Columns {
					seat := model.SeatRef{Row: r, Column: col}
					st := l.Seats[r][col]
					if st.Status != model.SeatSelected || st.Since.Add(c.cfg.HoldTTL).After(now) {
						continue
					}
					if c.holds.tracked(roomID, seat) {
						continue
					}
					op.set(seat, model.Available())
					released = append(released, seat)
				}
			}
			if len(released) == 0 {
				return errNoop
			}
			return nil
		})
		if err != nil {
			if !errors.Is(err, errNoop) {
				c.log.Error("release stale holds failed", "room_id", roomID, "err", err)
			}
			continue
		}
		total += len(released)
		c.broadcastRoom(ctx, roomID, released, now)
	}
	return total
}

// broadcastRoom announces released seats to every upcoming screening of a
// room, for changes that no single screening triggered.
func (c *Coordinator) broadcastRoom(ctx context.Context, roomID uint64, seats []model.SeatRef, now time.Time) {
	list, err := c.store.UpcomingScreenings(ctx, roomID, now)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			c.log.Warn("list screenings for broadcast failed", "room_id", roomID, "err", err)
		}
		return
	}
	for _, s := range list {
		c.broadcast(s.ID, seats, model.SeatAvailable, "")
	}
}
