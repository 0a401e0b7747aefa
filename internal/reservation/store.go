package reservation

import (
	"context"
	"time"

	"github.com/iliyamo/cineclic/internal/model"
	"github.com/iliyamo/cineclic/internal/repository"
)

// Store is the persistence seam of the coordinator.  Reads outside a Tx
// are plain lookups; every write goes through a Tx so the ledger write and
// the layout write of one operation commit or roll back together.
//
// Lookups return repository.ErrNotFound for missing rows.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Screening(ctx context.Context, id uint64) (*model.Screening, error)
	UpcomingScreenings(ctx context.Context, roomID uint64, from time.Time) ([]model.Screening, error)
	Movie(ctx context.Context, id uint64) (*model.Movie, error)
	User(ctx context.Context, id uint64) (model.User, error)
	Booking(ctx context.Context, id uint64) (*model.Booking, error)
	DueBookings(ctx context.Context, until time.Time) ([]repository.DueBooking, error)
	RoomIDs(ctx context.Context) ([]uint64, error)
}

// Tx is one unit of work.  LockRoom and LockBooking take row locks that
// serialize writers across processes; the coordinator's room mutex does
// the same inside one process.
type Tx interface {
	LockRoom(ctx context.Context, id uint64) (*model.Room, error)
	SaveLayout(ctx context.Context, roomID uint64, layout model.Layout) error
	SaveRoom(ctx context.Context, room *model.Room) error
	CreateBooking(ctx context.Context, b *model.Booking) error
	LockBooking(ctx context.Context, id uint64) (*model.Booking, error)
	SetBookingStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error
	Commit() error
	Rollback() error
}
