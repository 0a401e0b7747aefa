package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cineclic/internal/database"
	"github.com/iliyamo/cineclic/internal/model"
)

// MovieRepo manages the movie catalog.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = `id, title, description, duration_min, rating, poster_url, created_at, updated_at`

func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (title, description, duration_min, rating, poster_url) VALUES (?, ?, ?, ?, ?)`,
		m.Title, m.Description, m.DurationMin, m.Rating, m.PosterURL)
	if err != nil {
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
	*m = *got
	return nil
}

func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *MovieRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Movie, error) {
	return r.get(ctx, tx, id)
}

func (r *MovieRepo) get(ctx context.Context, q queryer, id uint64) (*model.Movie, error) {
	var m model.Movie
	var desc, poster sql.NullString
	err := q.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id).
		Scan(&m.ID, &m.Title, &desc, &m.DurationMin, &m.Rating, &poster, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	m.Description = nullString(desc)
	m.PosterURL = nullString(poster)
	return &m, nil
}

func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY title, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		var desc, poster sql.NullString
		if err := rows.Scan(&m.ID, &m.Title, &desc, &m.DurationMin, &m.Rating, &poster, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.Description = nullString(desc)
		m.PosterURL = nullString(poster)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE movies SET title = ?, description = ?, duration_min = ?, rating = ?, poster_url = ? WHERE id = ?`,
		m.Title, m.Description, m.DurationMin, m.Rating, m.PosterURL, m.ID); err != nil {
		return err
	}
	got, err := r.get(ctx, r.db, m.ID)
	if err != nil {
		return err
	}
	*m = *got
	return nil
}

// Delete removes a movie; movies with screenings yield ErrConflict.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
