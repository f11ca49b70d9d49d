package store

import (
	"context"
	"database/sql"
	"time"
)

// RevokeToken blocks a token id until the token would have expired on its
// own. Revocations that have run out are dropped in the same transaction.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < unixepoch('now')`,
	); err != nil {
		return storageErr("pruning revoked tokens", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)
		 ON CONFLICT(jti) DO UPDATE SET expires_at = MAX(expires_at, excluded.expires_at)`,
		jti, expiresAt.Unix(),
	); err != nil {
		return storageErr("revoking token", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing revocation", err)
	}
	return nil
}

// IsTokenRevoked reports whether a still valid revocation exists for jti.
func IsTokenRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var revoked bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens
		                 WHERE jti = ? AND expires_at >= unixepoch('now'))`,
		jti,
	).Scan(&revoked)
	if err != nil {
		return false, storageErr("checking token revocation", err)
	}
	return revoked, nil
}
