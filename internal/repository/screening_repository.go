package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/cineclic/internal/database"
	"github.com/iliyamo/cineclic/internal/model"
)

// ScreeningRepo manages persistence for screenings.
type ScreeningRepo struct {
	db *sql.DB
}

// NewScreeningRepo constructs a ScreeningRepo with the given DB handle.
func NewScreeningRepo(db *sql.DB) *ScreeningRepo {
	return &ScreeningRepo{db: db}
}

const screeningColumns = `id, movie_id, room_id, start_time, end_time, price_cents, created_at, updated_at`

// ScreeningFilter narrows List.  Zero values disable a filter.
type ScreeningFilter struct {
	MovieID uint64
	RoomID  uint64
	From    time.Time
	To      time.Time
}

// Create inserts a screening and reads back the stored row.
func (r *ScreeningRepo) Create(ctx context.Context, s *model.Screening) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO screenings (movie_id, room_id, start_time, end_time, price_cents) VALUES (?, ?, ?, ?, ?)`,
		s.MovieID, s.RoomID, s.StartTime.UTC(), s.EndTime.UTC(), s.PriceCents)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.get(ctx, r.db, uint64(id))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// GetByID retrieves a screening by its ID or returns ErrNotFound.
func (r *ScreeningRepo) GetByID(ctx context.Context, id uint64) (*model.Screening, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *ScreeningRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Screening, error) {
	return r.get(ctx, tx, id)
}

func (r *ScreeningRepo) get(ctx context.Context, q queryer, id uint64) (*model.Screening, error) {
	var s model.Screening
	err := q.QueryRowContext(ctx, `SELECT `+screeningColumns+` FROM screenings WHERE id = ?`, id).
		Scan(&s.ID, &s.MovieID, &s.RoomID, &s.StartTime, &s.EndTime, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// List returns screenings ordered by start time, narrowed by the filter.
func (r *ScreeningRepo) List(ctx context.Context, f ScreeningFilter) ([]model.Screening, error) {
	where := []string{}
	args := []any{}
	if f.MovieID != 0 {
		where = append(where, "movie_id = ?")
		args = append(args, f.MovieID)
	}
	if f.RoomID != 0 {
		where = append(where, "room_id = ?")
		args = append(args, f.RoomID)
	}
	if !f.From.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "start_time < ?")
		args = append(args, f.To.UTC())
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+screeningColumns+` FROM screenings WHERE `+cond+` ORDER BY start_time ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Screening{}
	for rows.Next() {
		var s model.Screening
		if err := rows.Scan(&s.ID, &s.MovieID, &s.RoomID, &s.StartTime, &s.EndTime, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update rewrites every mutable column of a screening.
func (r *ScreeningRepo) Update(ctx context.Context, s *model.Screening) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE screenings SET movie_id = ?, room_id = ?, start_time = ?, end_time = ?, price_cents = ? WHERE id = ?`,
		s.MovieID, s.RoomID, s.StartTime.UTC(), s.EndTime.UTC(), s.PriceCents, s.ID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return err
	}
	got, err := r.get(ctx, r.db, s.ID)
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// Delete removes a screening.  Screenings with bookings yield ErrConflict.
func (r *ScreeningRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM screenings WHERE id = ?`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
