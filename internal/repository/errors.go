// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// reservation coordinator and the handlers to distinguish between
// different failure scenarios without inspecting driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.  Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as deleting a room that screenings
// still reference.  Handlers translate this into 409.
var ErrConflict = errors.New("conflict")

// ErrNoChange indicates an UPDATE matched a row but changed nothing.
var ErrNoChange = errors.New("no change")

// ErrFolioTaken is returned when a booking insert collides with an
// existing folio.  Callers regenerate the folio and retry.
var ErrFolioTaken = errors.New("folio already in use")

// queryer is satisfied by both *sql.DB and *sql.Tx so each query is
// written once and exposed in plain and *Tx flavours.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// notFound maps sql.ErrNoRows to ErrNotFound and leaves other errors as is.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
