package repository

import (
	"context"
	"database/sql"
	"time"
)

// AccountTokenRepo keeps the hashed one-time tokens mailed for account
// confirmation and password resets.  A user has at most one live token per
// purpose.
type AccountTokenRepo struct{ db *sql.DB }

func NewAccountTokenRepo(db *sql.DB) *AccountTokenRepo { return &AccountTokenRepo{db: db} }

// Issue stores a new token hash and drops the user's unused tokens of the
// same purpose.
func (r *AccountTokenRepo) Issue(ctx context.Context, userID uint64, purpose, tokenHash string, exp time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM account_tokens WHERE user_id=? AND purpose=? AND used_at IS NULL",
		userID, purpose); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO account_tokens (user_id, purpose, token_hash, expires_at) VALUES (?,?,?,?)",
		userID, purpose, tokenHash, exp.UTC()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Lookup returns the owner of a live token without using it up.
func (r *AccountTokenRepo) Lookup(ctx context.Context, purpose, tokenHash string) (uint64, error) {
	_, userID, err := r.live(ctx, r.db, purpose, tokenHash, false)
	return userID, err
}

// Consume marks a live token as used and returns its owner.  Expired, used
// and unknown tokens are ErrNotFound.
func (r *AccountTokenRepo) Consume(ctx context.Context, purpose, tokenHash string) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	id, userID, err := r.live(ctx, tx, purpose, tokenHash, true)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE account_tokens SET used_at=UTC_TIMESTAMP() WHERE id=?", id); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return userID, nil
}

func (r *AccountTokenRepo) live(ctx context.Context, q queryer, purpose, tokenHash string, lock bool) (uint64, uint64, error) {
	query := "SELECT id, user_id, expires_at, used_at FROM account_tokens WHERE token_hash=? AND purpose=? LIMIT 1"
	if lock {
		query += " FOR UPDATE"
	}
	var (
		id, userID uint64
		expiresAt  time.Time
		usedAt     sql.NullTime
	)
	if err := q.QueryRowContext(ctx, query, tokenHash, purpose).Scan(&id, &userID, &expiresAt, &usedAt); err != nil {
		return 0, 0, notFound(err)
	}
	if usedAt.Valid || !time.Now().UTC().Before(expiresAt) {
		return 0, 0, ErrNotFound
	}
	return id, userID, nil
}
