package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cineclic/internal/database"
	"github.com/iliyamo/cineclic/internal/model"
)

// RoomRepo provides persistence for rooms and their layout documents.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// DB exposes the underlying handle so callers can begin transactions that
// span several repositories.
func (r *RoomRepo) DB() *sql.DB { return r.db }

const roomColumns = `id, name, capacity, layout, created_at, updated_at`

// Create inserts a room and reads it back so timestamps are populated.
func (r *RoomRepo) Create(ctx context.Context, room *model.Room) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (name, capacity, layout) VALUES (?, ?, ?)`,
		room.Name, room.Capacity, room.Layout)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.get(ctx, r.db, uint64(id), false)
	if err != nil {
		return err
	}
	*room = *got
	return nil
}

// GetByID returns a room or ErrNotFound.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	return r.get(ctx, r.db, id, false)
}

// GetForUpdateTx reads a room and takes a row lock on it for the rest of
// the transaction, so layout read-modify-write cycles from other processes
// queue behind this one.
func (r *RoomRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Room, error) {
	return r.get(ctx, tx, id, true)
}

func (r *RoomRepo) get(ctx context.Context, q queryer, id uint64, lock bool) (*model.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	if lock {
		query += ` FOR UPDATE`
	}
	var room model.Room
	var capacity sql.NullInt64
	err := q.QueryRowContext(ctx, query, id).Scan(&room.ID, &room.Name, &capacity, &room.Layout, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		room.Capacity = &c
	}
	return &room, nil
}

// List returns every room ordered by id.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Room{}
	for rows.Next() {
		var room model.Room
		var capacity sql.NullInt64
		if err := rows.Scan(&room.ID, &room.Name, &capacity, &room.Layout, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}
		if capacity.Valid {
			c := int(capacity.Int64)
			room.Capacity = &c
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

// UpdateTx writes name, capacity and layout of an existing room.
func (r *RoomRepo) UpdateTx(ctx context.Context, tx *sql.Tx, room *model.Room) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE rooms SET name = ?, capacity = ?, layout = ? WHERE id = ?`,
		room.Name, room.Capacity, room.Layout, room.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

// UpdateLayoutTx replaces the layout document of a room.  Callers hold the
// room lock obtained through GetForUpdateTx.
func (r *RoomRepo) UpdateLayoutTx(ctx context.Context, tx *sql.Tx, roomID uint64, layout model.Layout) error {
	_, err := tx.ExecContext(ctx, `UPDATE rooms SET layout = ? WHERE id = ?`, layout, roomID)
	return err
}

// Delete removes a room.  Rooms referenced by screenings yield ErrConflict.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
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

// affected returns ErrNoChange when an UPDATE touched no row.  MySQL
// reports matched rows only with CLIENT_FOUND_ROWS, so zero here may also
// mean the values were unchanged; callers that care re-read the row.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoChange
	}
	return nil
}
