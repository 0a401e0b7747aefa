package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/cineclic/internal/model"
	"github.com/iliyamo/cineclic/internal/queue"
	"github.com/iliyamo/cineclic/internal/repository"
)

const folioAttempts = 5

// normalizeSeats checks the requested seat list and returns it with row
// labels upper-cased.
func (c *Coordinator) normalizeSeats(seats []model.SeatRef) ([]model.SeatRef, error) {
	if len(seats) == 0 {
		return nil, newError(KindValidation, "at least one seat is required")
	}
	if len(seats) > c.cfg.MaxSeats {
		return nil, newError(KindValidation, fmt.Sprintf("at most %d seats per booking", c.cfg.MaxSeats))
	}
	out := make([]model.SeatRef, 0, len(seats))
	seen := make(map[model.SeatRef]bool, len(seats))
	for _, s := range seats {
		s = s.Normalize()
		if s.Row == "" || s.Column < 1 {
			return nil, newError(KindValidation, "every seat needs a row and a column")
		}
		if seen[s] {
			return nil, newError(KindValidation, fmt.Sprintf("seat %s requested twice", s))
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

// CreateBooking validates the requested seats against the room layout and
// commits an ACTIVA booking with those seats marked occupied.  Checks run
// in order and fail fast: input, screening, then seat availability.  A
// seat selected by a connection of the same user counts as available; its
// hold is dropped on commit.
func (c *Coordinator) CreateBooking(ctx context.Context, userID, screeningID uint64, seats []model.SeatRef) (*model.Booking, error) {
	if userID == 0 || screeningID == 0 {
		return nil, newError(KindValidation, "user and screening are required")
	}
	seats, err := c.normalizeSeats(seats)
	if err != nil {
		return nil, err
	}
	scr, err := c.screening(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	user, err := c.store.User(ctx, userID)
	if err != nil {
		return nil, c.reference("user", err)
	}
	movie, err := c.store.Movie(ctx, scr.MovieID)
	if err != nil {
		return nil, c.reference("movie", err)
	}

	var booking *model.Booking
	var roomName string
	err = c.inRoom(ctx, scr.RoomID, func(op *roomOp) error {
		var taken []string
		var held []model.SeatRef
		for _, s := range seats {
			st, ok := op.room.Layout.State(s)
			switch {
			case !ok:
				taken = append(taken, s.String())
			case st.Status == model.SeatAvailable:
			case st.Status == model.SeatSelected && st.UserID == userID:
				held = append(held, s)
			default:
				taken = append(taken, s.String())
			}
		}
		if len(taken) > 0 {
			return conflict(taken)
		}
		for _, s := range seats {
			op.set(s, model.Occupied())
		}

		b := &model.Booking{
			BookingDate: c.now().UTC(),
			Status:      model.BookingActive,
			Seats:       model.SeatRefs(seats),
			UserID:      userID,
			ScreeningID: screeningID,
		}
		if err := c.insertWithFolio(ctx, op, b); err != nil {
			return err
		}
		booking = b
		roomName = op.room.Name
		op.afterCommit(func() {
			for _, s := range held {
				c.holds.cancelSeat(scr.RoomID, s)
			}
			c.broadcast(screeningID, seats, model.SeatOccupied, "")
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("booking created", "folio", booking.Folio, "booking_id", booking.ID,
		"screening_id", screeningID, "user_id", userID, "seats", booking.Seats.Labels())

	deadline := scr.PaymentDeadline(c.cfg.PaymentWindow)
	ev := queue.BookingConfirmedEvent{
		BookingID:       booking.ID,
		Folio:           booking.Folio,
		UserID:          user.ID,
		UserName:        user.Name,
		UserEmail:       user.Email,
		ScreeningID:     screeningID,
		MovieTitle:      movie.Title,
		RoomName:        roomName,
		StartsAt:        scr.StartTime,
		SeatLabels:      booking.Seats.Labels(),
		TotalCents:      scr.PriceCents * uint32(len(booking.Seats)),
		PaymentDeadline: deadline,
		Message: fmt.Sprintf("You have %d minutes to complete the payment. Unpaid bookings are cancelled at %s.",
			int(c.cfg.PaymentWindow.Minutes()), deadline.UTC().Format("15:04 MST")),
		ConfirmedAt: booking.BookingDate,
	}
	c.notify(queue.TopicBookingConfirmed, func(ctx context.Context, n Notifier) error {
		return n.BookingConfirmed(ctx, ev)
	})
	return booking, nil
}

// insertWithFolio writes b under a fresh folio, regenerating on collision.
func (c *Coordinator) insertWithFolio(ctx context.Context, tx Tx, b *model.Booking) error {
	for i := 0; i < folioAttempts; i++ {
		folio, err := c.folio()
		if err != nil {
			return internal("generate folio", err)
		}
		b.Folio = folio
		err = tx.CreateBooking(ctx, b)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrFolioTaken) {
			c.log.Debug("folio collision", "folio", folio, "attempt", i+1)
			continue
		}
		if errors.Is(err, repository.ErrNotFound) {
			return &Error{Kind: KindIntegrity, Message: "booking references a missing row", Err: err}
		}
		return internal("insert booking", err)
	}
	return internal("insert booking", fmt.Errorf("no free folio after %d attempts", folioAttempts))
}

// reference maps a failed lookup of a row the booking depends on.
func (c *Coordinator) reference(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &Error{Kind: KindIntegrity, Message: what + " not found", Err: err}
	}
	return internal("load "+what, err)
}

// CancelOutcome is the result of CancelBooking.  When ConfirmRequired is
// set nothing was changed and Message is the prompt to show.
type CancelOutcome struct {
	Booking         *model.Booking
	ConfirmRequired bool
	Message         string
}

// CancelBooking moves a booking owned by userID to CANCELADA and releases
// its seats that are still occupied.  Without confirm it only returns the
// confirmation prompt.
func (c *Coordinator) CancelBooking(ctx context.Context, userID, bookingID uint64, confirm bool) (*CancelOutcome, error) {
	b, err := c.store.Booking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, "booking not found")
		}
		return nil, internal("load booking", err)
	}
	if b.UserID != userID {
		return nil, newError(KindUnauthorized, "booking belongs to another user")
	}
	if b.IsCancelled() {
		return nil, newError(KindAlreadyCancelled, "booking is already cancelled")
	}
	scr, err := c.store.Screening(ctx, b.ScreeningID)
	if err != nil {
		return nil, c.reference("screening", err)
	}
	cutoff := scr.CancellationCutoff(c.cfg.CancelCutoff)
	if !c.now().Before(cutoff) {
		return nil, newError(KindCancellationClosed,
			fmt.Sprintf("bookings can only be cancelled up to %d minutes before the screening", int(c.cfg.CancelCutoff.Minutes())))
	}
	if !confirm {
		return &CancelOutcome{
			Booking:         b,
			ConfirmRequired: true,
			Message:         fmt.Sprintf("Cancel booking %s for seats %v? Send confirm=true to proceed.", b.Folio, b.Seats.Labels()),
		}, nil
	}

	released, err := c.cancelInRoom(ctx, scr.RoomID, bookingID)
	if err != nil {
		if errors.Is(err, errNoop) {
			return nil, newError(KindAlreadyCancelled, "booking is already cancelled")
		}
		return nil, err
	}
	b.Status = model.BookingCancelled
	c.log.Info("booking cancelled", "folio", b.Folio, "booking_id", b.ID, "released", len(released))

	c.notifyCancelled(b, queue.ReasonCustomer,
		"Your booking has been cancelled. If you have any questions, contact us.")
	return &CancelOutcome{Booking: b}, nil
}

// cancelInRoom re-reads the booking under the room lock, frees its seats
// still marked occupied and flips the status.  It returns errNoop when the
// booking is no longer active.
func (c *Coordinator) cancelInRoom(ctx context.Context, roomID, bookingID uint64) ([]model.SeatRef, error) {
	var released []model.SeatRef
	err := c.inRoom(ctx, roomID, func(op *roomOp) error {
		b, err := op.LockBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errNoop
			}
			return internal("lock booking", err)
		}
		if b.Status != model.BookingActive {
			return errNoop
		}
		for _, s := range b.Seats {
			if st, ok := op.room.Layout.State(s); ok && st.Status == model.SeatOccupied {
				op.set(s, model.Available())
				released = append(released, s)
			}
		}
		if err := op.SetBookingStatus(ctx, bookingID, model.BookingActive, model.BookingCancelled); err != nil {
			if errors.Is(err, repository.ErrNoChange) {
				return errNoop
			}
			return internal("update booking status", err)
		}
		op.afterCommit(func() {
			c.broadcast(b.ScreeningID, released, model.SeatAvailable, "")
		})
		return nil
	})
	return released, err
}

// notifyCancelled looks the owner up off the request path and sends the
// cancellation notice.
func (c *Coordinator) notifyCancelled(b *model.Booking, reason, message string) {
	at := c.now().UTC()
	c.notify(queue.TopicBookingCancelled, func(ctx context.Context, n Notifier) error {
		u, err := c.store.User(ctx, b.UserID)
		if err != nil {
			return fmt.Errorf("load user %d: %w", b.UserID, err)
		}
		return n.BookingCancelled(ctx, queue.BookingCancelledEvent{
			BookingID:   b.ID,
			Folio:       b.Folio,
			UserID:      u.ID,
			UserName:    u.Name,
			UserEmail:   u.Email,
			ScreeningID: b.ScreeningID,
			SeatLabels:  b.Seats.Labels(),
			Reason:      reason,
			Message:     message,
			CancelledAt: at,
		})
	})
}
