package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/cineclic/internal/database"
    "github.com/iliyamo/cineclic/internal/model"
)

// BookingRepo provides persistence for bookings.  Seats are kept on the
// booking row itself as a JSON list of (row, column) pairs; the room layout
// is the authority on which seats are occupied.  All timestamp fields are
// stored in UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.folio, b.booking_date, b.status, b.seats, b.user_id, b.screening_id, b.created_at, b.updated_at`

// BookingDetail is a booking joined with what a customer needs to read a
// ticket: movie title, room name, start time and the amount paid.
type BookingDetail struct {
    model.Booking
    MovieTitle string    `json:"movie_title"`
    RoomID     uint64    `json:"room_id"`
    RoomName   string    `json:"room_name"`
    StartTime  time.Time `json:"start_time"`
    PriceCents uint32    `json:"price_cents"`
    TotalCents uint32    `json:"total_cents"`
}

// DueBooking is an active booking whose screening starts inside the
// payment window, as returned by ListActiveStartingBefore.
type DueBooking struct {
    model.Booking
    RoomID    uint64
    StartTime time.Time
}

// CreateTx inserts a booking inside the caller's transaction and fills in
// the generated id and timestamps.  A folio collision yields ErrFolioTaken
// so the caller can regenerate and retry.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    if b.Status == "" {
        b.Status = model.BookingActive
    }
    const q = `INSERT INTO bookings (folio, booking_date, status, seats, user_id, screening_id) VALUES (?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, b.Folio, b.BookingDate.UTC(), string(b.Status), b.Seats, b.UserID, b.ScreeningID)
    if err != nil {
        if database.IsDuplicateKey(err) {
            return ErrFolioTaken
        }
        if database.IsForeignKeyViolation(err) {
            return ErrNotFound
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    got, err := r.get(ctx, tx, `b.id = ?`, uint64(id))
    if err != nil {
        return err
    }
    *b = *got
    return nil
}

// GetByID returns a booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    return r.get(ctx, r.db, `b.id = ?`, id)
}

// GetByIDTx reads a booking and locks its row for the rest of the
// transaction so concurrent cancellations serialize.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
    return r.get(ctx, tx, `b.id = ? FOR UPDATE`, id)
}

// GetByFolio looks a booking up by its public reference.
func (r *BookingRepo) GetByFolio(ctx context.Context, folio string) (*model.Booking, error) {
    return r.get(ctx, r.db, `b.folio = ?`, folio)
}

func (r *BookingRepo) get(ctx context.Context, q queryer, cond string, arg any) (*model.Booking, error) {
    row := q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE `+cond, arg)
    b, err := scanBooking(row)
    if err != nil {
        return nil, notFound(err)
    }
    return b, nil
}

type rowScanner interface {
    Scan(dest ...any) error
}

func scanBooking(s rowScanner, extra ...any) (*model.Booking, error) {
    var b model.Booking
    var status string
    dest := []any{&b.ID, &b.Folio, &b.BookingDate, &status, &b.Seats, &b.UserID, &b.ScreeningID, &b.CreatedAt, &b.UpdatedAt}
    if err := s.Scan(append(dest, extra...)...); err != nil {
        return nil, err
    }
    b.Status = model.BookingStatus(status)
    return &b, nil
}

// UpdateStatusTx moves a booking to a new status.  It is a no-op guard
// against double transitions: only rows still in `from` are touched, and
// ErrNoChange is returned when none was.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.BookingStatus) error {
    res, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`, string(to), id, string(from))
    if err != nil {
        return err
    }
    return affected(res)
}

const detailQuery = `SELECT ` + bookingColumns + `, m.title, r.id, r.name, s.start_time, s.price_cents
    FROM bookings b
    JOIN screenings s ON s.id = b.screening_id
    JOIN movies m ON m.id = s.movie_id
    JOIN rooms r ON r.id = s.room_id`

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
    return r.listDetail(ctx, detailQuery+` WHERE b.user_id = ? ORDER BY b.booking_date DESC, b.id DESC`, userID)
}

// ListByScreening returns every booking of a screening for administrators.
func (r *BookingRepo) ListByScreening(ctx context.Context, screeningID uint64) ([]BookingDetail, error) {
    return r.listDetail(ctx, detailQuery+` WHERE b.screening_id = ? ORDER BY b.id ASC`, screeningID)
}

// GetDetailByFolio is GetByFolio joined with screening information.
func (r *BookingRepo) GetDetailByFolio(ctx context.Context, folio string) (*BookingDetail, error) {
    list, err := r.listDetail(ctx, detailQuery+` WHERE b.folio = ?`, folio)
    if err != nil {
        return nil, err
    }
    if len(list) == 0 {
        return nil, ErrNotFound
    }
    return &list[0], nil
}

func (r *BookingRepo) listDetail(ctx context.Context, query string, args ...any) ([]BookingDetail, error) {
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []BookingDetail{}
    for rows.Next() {
        var d BookingDetail
        b, err := scanBooking(rows, &d.MovieTitle, &d.RoomID, &d.RoomName, &d.StartTime, &d.PriceCents)
        if err != nil {
            return nil, err
        }
        d.Booking = *b
        d.TotalCents = d.PriceCents * uint32(len(b.Seats))
        out = append(out, d)
    }
    return out, rows.Err()
}

// ListActiveStartingBefore returns ACTIVA bookings whose screening starts
// at or before until, including screenings that already started.  The
// sweep uses it to find bookings past their payment deadline.
func (r *BookingRepo) ListActiveStartingBefore(ctx context.Context, until time.Time) ([]DueBooking, error) {
    const q = `SELECT ` + bookingColumns + `, s.room_id, s.start_time
    FROM bookings b
    JOIN screenings s ON s.id = b.screening_id
    WHERE b.status = ? AND s.start_time <= ?
    ORDER BY s.room_id, b.id`
    rows, err := r.db.QueryContext(ctx, q, string(model.BookingActive), until.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []DueBooking{}
    for rows.Next() {
        var d DueBooking
        b, err := scanBooking(rows, &d.RoomID, &d.StartTime)
        if err != nil {
            return nil, err
        }
        d.Booking = *b
        out = append(out, d)
    }
    return out, rows.Err()
}
