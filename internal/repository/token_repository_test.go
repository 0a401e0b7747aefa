package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRefresh(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)
	q := regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")
	cols := []string{"user_id", "expires_at", "revoked_at"}

	mock.ExpectQuery(q).WithArgs("live").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, time.Now().UTC().Add(time.Hour), nil))
	id, err := repo.ValidateRefresh(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)

	mock.ExpectQuery(q).WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, time.Now().UTC().Add(time.Hour), time.Now().UTC()))
	_, err = repo.ValidateRefresh(context.Background(), "revoked")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(q).WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, time.Now().UTC().Add(-time.Minute), nil))
	_, err = repo.ValidateRefresh(context.Background(), "expired")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(q).WithArgs("missing").WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.ValidateRefresh(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
