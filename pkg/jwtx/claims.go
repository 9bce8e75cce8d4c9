package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. These provide sensible security defaults but
// are overridden per-service from configuration.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the access-token claims for an authenticated identity. The
// identity-derived fields map 1:1 onto the user record plus one entry per
// role; registered claims (iss, aud, iat, nbf, exp, jti) are stamped by the
// signer at issue time.
type Claims struct {
	jwt.RegisteredClaims

	// Username the account authenticated as (the account email).
	Username string `json:"username,omitempty"`

	// GivenName and FamilyName are always present, empty string when the
	// account has none recorded. Downstream consumers rely on the keys
	// existing.
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`

	// Email of the account.
	Email string `json:"email,omitempty"`

	// Roles carries one entry per role granted to the account, in store
	// order. Duplicates in the store are passed through untouched so they
	// stay visible to whoever audits the role table.
	Roles []string `json:"roles,omitempty"`
}

// NewIdentityClaims builds the identity-derived claim fields for a user.
// Pure: no clock access, no registered claims. The signer fills those in.
func NewIdentityClaims(
	subject, username, givenName, familyName, email string,
	roles []string,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
		Username:   username,
		GivenName:  givenName,
		FamilyName: familyName,
		Email:      email,
		Roles:      roles,
	}
}

// HasAnyRole reports whether the claims carry at least one of the wanted
// roles. An empty want list matches any authenticated identity.
func (c *Claims) HasAnyRole(want ...string) bool {
	if len(want) == 0 {
		return c.Subject != ""
	}

	for _, w := range want {
		if slices.Contains(c.Roles, w) {
			return true
		}
	}

	return false
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected ...string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before nbf. Deliberately separate from signature verification: the refresh
// flow accepts expired-but-authentic tokens.
func (c *Claims) ValidateExpiry(now time.Time) error {
	now = now.UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
