package reservation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cineclic/internal/model"
	"github.com/iliyamo/cineclic/internal/repository"
)

// SQLStore implements Store on top of the MySQL repositories.
type SQLStore struct {
	db         *sql.DB
	rooms      *repository.RoomRepo
	screenings *repository.ScreeningRepo
	movies     *repository.MovieRepo
	users      *repository.UserRepo
	bookings   *repository.BookingRepo
}

// NewSQLStore builds the repositories it needs from one handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:         db,
		rooms:      repository.NewRoomRepo(db),
		screenings: repository.NewScreeningRepo(db),
		movies:     repository.NewMovieRepo(db),
		users:      repository.NewUserRepo(db),
		bookings:   repository.NewBookingRepo(db),
	}
}

func (s *SQLStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx, s: s}, nil
}

func (s *SQLStore) Screening(ctx context.Context, id uint64) (*model.Screening, error) {
	return s.screenings.GetByID(ctx, id)
}

func (s *SQLStore) UpcomingScreenings(ctx context.Context, roomID uint64, from time.Time) ([]model.Screening, error) {
	return s.screenings.List(ctx, repository.ScreeningFilter{RoomID: roomID, From: from})
}

func (s *SQLStore) Movie(ctx context.Context, id uint64) (*model.Movie, error) {
	return s.movies.GetByID(ctx, id)
}

func (s *SQLStore) User(ctx context.Context, id uint64) (model.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *SQLStore) Booking(ctx context.Context, id uint64) (*model.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *SQLStore) DueBookings(ctx context.Context, until time.Time) ([]repository.DueBooking, error) {
	return s.bookings.ListActiveStartingBefore(ctx, until)
}

func (s *SQLStore) RoomIDs(ctx context.Context) ([]uint64, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

type sqlTx struct {
	tx *sql.Tx
	s  *SQLStore
}

func (t *sqlTx) LockRoom(ctx context.Context, id uint64) (*model.Room, error) {
	return t.s.rooms.GetForUpdateTx(ctx, t.tx, id)
}

func (t *sqlTx) SaveLayout(ctx context.Context, roomID uint64, layout model.Layout) error {
	return t.s.rooms.UpdateLayoutTx(ctx, t.tx, roomID, layout)
}

func (t *sqlTx) SaveRoom(ctx context.Context, room *model.Room) error {
	err := t.s.rooms.UpdateTx(ctx, t.tx, room)
	if errors.Is(err, repository.ErrNoChange) {
		return nil
	}
	return err
}

func (t *sqlTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.CreateTx(ctx, t.tx, b)
}

func (t *sqlTx) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return t.s.bookings.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) SetBookingStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error {
	return t.s.bookings.UpdateStatusTx(ctx, t.tx, id, from, to)
}

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }
