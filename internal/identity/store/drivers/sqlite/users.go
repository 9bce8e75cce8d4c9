package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/invopay/identity/internal/identity/domain"
	"github.com/invopay/identity/internal/identity/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, username, first_name, last_name, email, password_hash,
	refresh_token_hash, refresh_token_expires_at, lockout_end, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, username, first_name, last_name, email, password_hash)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.FirstName, u.LastName, u.Email, u.PasswordHash,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) SetRefreshToken(
	ctx context.Context,
	userID, tokenHash string,
	expiresAt time.Time,
) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users
		 SET refresh_token_hash = ?, refresh_token_expires_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		tokenHash, expiresAt.UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res, store.ErrNotFound)
}

func (r *usersRepo) RotateRefreshToken(
	ctx context.Context,
	userID, currentHash, nextHash string,
	expiresAt time.Time,
) error {
	// Compare-and-swap: the WHERE clause is the critical section. Two
	// concurrent refreshes presenting the same token race on this update;
	// whichever lands second matches zero rows and fails closed.
	res, err := r.q.ExecContext(ctx,
		`UPDATE users
		 SET refresh_token_hash = ?, refresh_token_expires_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND refresh_token_hash = ?`,
		nextHash, expiresAt.UTC(), userID, currentHash,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res, store.ErrStaleRefreshToken)
}

func (r *usersRepo) SetLockoutEnd(ctx context.Context, userID string, until *time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET lockout_end = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		mapOptionalTime(until), userID,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(res, store.ErrNotFound)
}

func (r *usersRepo) ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users
		 SET refresh_token_hash = NULL, refresh_token_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE refresh_token_expires_at IS NOT NULL AND refresh_token_expires_at < ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *usersRepo) ClearExpiredLockouts(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users
		 SET lockout_end = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE lockout_end IS NOT NULL AND lockout_end < ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                domain.User
		refreshHash      sql.NullString
		refreshExpiresAt sql.NullTime
		lockoutEnd       sql.NullTime
	)

	err := row.Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&refreshHash, &refreshExpiresAt, &lockoutEnd, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.RefreshTokenHash = mapNullString(refreshHash)
	u.RefreshTokenExpiresAt = mapNullTimePtr(refreshExpiresAt)
	u.LockoutEnd = mapNullTimePtr(lockoutEnd)
	return u, nil
}

func requireRowAffected(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
