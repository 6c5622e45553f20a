package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh tokens (single 'token_hash' column, never the
// raw secret). Rows are never deleted: rotation and logout set revoked_at,
// expiry is implicit, and the table doubles as an audit trail.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// Rotate revokes the row matching presentedHash and inserts a replacement
// for the same user, as a single transaction. The revoke is a conditional
// update on the active predicate, so concurrent rotations of the same
// secret resolve to exactly one winner; every loser gets sql.ErrNoRows.
func (r *TokenRepo) Rotate(ctx context.Context, presentedHash, newHash string, exp time.Time) (string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var (
		id     uint64
		userID string
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, user_id FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		presentedHash).Scan(&id, &userID)
	if err != nil {
		return "", err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE id=? AND revoked_at IS NULL AND expires_at > NOW()",
		id)
	if err != nil {
		return "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		// Already revoked (possible replay) or expired.
		return "", sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, newHash, exp); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return userID, nil
}

// RevokeAllForUser revokes every active token owned by the user. Idempotent:
// tokens already revoked or expired are left alone.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL AND expires_at > NOW()",
		userID)
	return err
}

// ActiveCountForUser returns how many sessions (active refresh tokens) the
// user currently holds.
func (r *TokenRepo) ActiveCountForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM refresh_tokens WHERE user_id=? AND revoked_at IS NULL AND expires_at > NOW()",
		userID).Scan(&n)
	return n, err
}
