package store

import (
	"context"
	"errors"
	"time"

	"github.com/invopay/identity/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrStaleRefreshToken reports a conditional refresh-token rotation that
	// matched no row: the presented token was already consumed or superseded.
	ErrStaleRefreshToken = errors.New("store: stale refresh token")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Roles() Roles

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back on error and
	// committing on nil. Use it for multi-step operations that must be
	// atomic (e.g. registration's user + role pair).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during credential verification.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// SetRefreshToken overwrites the refresh-token pair on the user row.
	// The previous token becomes permanently unusable the instant this
	// persists, regardless of its expiry.
	SetRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// RotateRefreshToken conditionally replaces the refresh-token pair:
	// the update applies only if the stored hash still equals currentHash.
	// Returns ErrStaleRefreshToken otherwise. This is the per-user critical
	// section that keeps concurrent refreshes single-use.
	RotateRefreshToken(ctx context.Context, userID, currentHash, nextHash string, expiresAt time.Time) error

	// SetLockoutEnd marks the account inactive until the given time.
	// A nil value clears the lockout.
	SetLockoutEnd(ctx context.Context, userID string, until *time.Time) error

	// ClearExpiredRefreshTokens nulls out refresh-token pairs whose expiry
	// has passed. Housekeeping; returns the number of rows touched.
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)

	// ClearExpiredLockouts nulls out lockout_end values already in the
	// past. Housekeeping; an elapsed lockout is inert either way.
	ClearExpiredLockouts(ctx context.Context, now time.Time) (int64, error)

	// DeleteUser removes a user; user_roles rows cascade per schema.
	DeleteUser(ctx context.Context, userID string) error
}

type Roles interface {
	// GetRoleByName fetches a role by its unique name.
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)

	// GetRoleNamesByUserID returns the user's role names in grant order.
	GetRoleNamesByUserID(ctx context.Context, userID string) ([]string, error)

	// AddUserToRole grants the named role to the user. Returns ErrNotFound
	// when the role does not exist and ErrAlreadyExists when the grant is
	// already present.
	AddUserToRole(ctx context.Context, userID, roleName string) error

	// ListAll returns all roles in the system.
	ListAll(ctx context.Context) ([]domain.Role, error)
}
