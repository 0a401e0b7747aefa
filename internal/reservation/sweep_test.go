package reservation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cineclic/internal/model"
	"github.com/iliyamo/cineclic/internal/queue"
)

func TestSweepCancelsBookingsInsidePaymentWindow(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	soon := f.clock.Now().Add(time.Hour)
	f.store.addScreening(12, roomID, movieID, soon, 7000)

	inWindow, err := f.coord.CreateBooking(ctx, 1, 12, seats("A1", "A2"))
	require.NoError(t, err)
	outside, err := f.coord.CreateBooking(ctx, 2, screeningID, seats("B1"))
	require.NoError(t, err)

	f.clock.Advance(45 * time.Minute)
	rep, err := f.coord.SweepDeadlines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Due)
	assert.Equal(t, 1, rep.Cancelled)
	assert.Equal(t, 0, rep.Failed)

	assert.Equal(t, model.BookingCancelled, f.store.booking(inWindow.ID).Status)
	assert.Equal(t, model.SeatAvailable, f.store.seat(roomID, "A1").Status)
	assert.Equal(t, model.SeatAvailable, f.store.seat(roomID, "A2").Status)
	assert.Equal(t, model.BookingActive, f.store.booking(outside.ID).Status)
	assert.Equal(t, model.SeatOccupied, f.store.seat(roomID, "B1").Status)

	calls := f.bcast.snapshot()
	last := calls[len(calls)-1]
	assert.Equal(t, uint64(12), last.ScreeningID)
	assert.Len(t, last.Updates, 2)

	require.NoError(t, f.coord.Close(ctx))
	require.Len(t, f.notify.cancelled, 1)
	assert.Equal(t, queue.ReasonPaymentDeadline, f.notify.cancelled[0].Reason)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.store.addScreening(12, roomID, movieID, f.clock.Now().Add(time.Hour), 7000)

	bad, err := f.coord.CreateBooking(ctx, 1, 12, seats("A1"))
	require.NoError(t, err)
	good, err := f.coord.CreateBooking(ctx, 2, 12, seats("A2"))
	require.NoError(t, err)
	f.store.statusErr[bad.ID] = errors.New("deadlock found")

	f.clock.Advance(50 * time.Minute)
	rep, err := f.coord.SweepDeadlines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Due)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Cancelled)

	assert.Equal(t, model.BookingActive, f.store.booking(bad.ID).Status)
	assert.Equal(t, model.SeatOccupied, f.store.seat(roomID, "A1").Status)
	assert.Equal(t, model.BookingCancelled, f.store.booking(good.ID).Status)
	assert.Equal(t, model.SeatAvailable, f.store.seat(roomID, "A2").Status)
}

func TestSweepCancelsBookingsOfStartedScreenings(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.store.addScreening(12, roomID, movieID, f.clock.Now().Add(10*time.Minute), 7000)
	b, err := f.coord.CreateBooking(ctx, 1, 12, seats("A5"))
	require.NoError(t, err)

	// No tick ran before the screening started.
	f.clock.Advance(12 * time.Minute)
	rep, err := f.coord.SweepDeadlines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Due)
	assert.Equal(t, 1, rep.Cancelled)
	assert.Equal(t, model.BookingCancelled, f.store.booking(b.ID).Status)
	assert.Equal(t, model.SeatAvailable, f.store.seat(roomID, "A5").Status)

	f.clock.Advance(4 * time.Hour)
	f.store.addScreening(13, roomID, movieID, f.clock.Now().Add(3*time.Hour), 7000)
	_, err = f.coord.CreateBooking(ctx, 2, 13, seats("A5"))
	require.NoError(t, err)
}

func TestSweepReleasesStaleHolds(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	old := f.clock.Now().Add(-10 * time.Minute)
	f.store.setSeat(roomID, "B3", model.Selected("gone", 1, old))
	f.store.setSeat(roomID, "B4", model.Selected("fresh", 1, f.clock.Now()))

	rep, err := f.coord.SweepDeadlines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.StaleHolds)
	assert.Equal(t, model.SeatAvailable, f.store.seat(roomID, "B3").Status)
	assert.True(t, f.store.seat(roomID, "B4").IsHeldBy("fresh"))

	calls := f.bcast.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, screeningID, calls[0].ScreeningID)
}
