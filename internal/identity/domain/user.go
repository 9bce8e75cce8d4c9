package domain

import "time"

// User is the identity record projection the auth flows operate on. The
// refresh-token pair (hash + expiry) lives directly on the row: there is
// exactly one live refresh token per user and every rotation overwrites it.
type User struct {
	ID           string
	Username     string // the account email doubles as the username
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string // argon2id encoded

	// RefreshTokenHash is the SHA-256 fingerprint of the current refresh
	// token, empty when the user has never logged in (or was pruned).
	RefreshTokenHash      string
	RefreshTokenExpiresAt *time.Time

	// LockoutEnd marks the account inactive until the timestamp passes.
	LockoutEnd *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLockedOut reports whether the account is inactive at the given instant.
// An absent or elapsed lockout means the account is active.
func (u User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// HasLiveRefreshToken reports whether the stored refresh token exists and has
// not expired at the given instant.
func (u User) HasLiveRefreshToken(now time.Time) bool {
	return u.RefreshTokenHash != "" &&
		u.RefreshTokenExpiresAt != nil &&
		u.RefreshTokenExpiresAt.After(now)
}

// Role is a named grant. Users hold a set of them through the user_roles
// join table.
type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Well-known role names seeded by the schema migrations.
const (
	RoleAdministrator = "Administrator"
	RoleUser          = "User"
)
