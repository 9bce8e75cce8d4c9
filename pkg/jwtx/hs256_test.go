package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:    "identity-test",
		Audience:  "invopay-api",
		AccessTTL: 15 * time.Minute,
	}
}

func newPair(t *testing.T, cfg Config) (*HS256Signer, *HS256Verifier) {
	t.Helper()

	signer, err := NewSignerHS256(cfg)
	require.NoError(t, err)
	verifier, err := NewVerifierHS256(cfg)
	require.NoError(t, err)
	return signer, verifier
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	t.Run("rejects short secret", func(t *testing.T) {
		cfg := testConfig()
		cfg.Secret = []byte("too-short")
		_, err := NewSignerHS256(cfg)
		require.Error(t, err)
	})

	t.Run("rejects missing issuer", func(t *testing.T) {
		cfg := testConfig()
		cfg.Issuer = ""
		_, err := NewVerifierHS256(cfg)
		require.Error(t, err)
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		cfg := testConfig()
		cfg.AccessTTL = 0
		_, err := NewSignerHS256(cfg)
		require.Error(t, err)
	})
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	signer, verifier := newPair(t, testConfig())
	now := time.Now()

	claims := NewIdentityClaims(
		"user-1", "alice@example.com", "Alice", "", "alice@example.com",
		[]string{"User", "PowerUser"},
	)

	token, err := signer.Issue(claims, now)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3, "JWT is three dot-separated segments")

	got, err := verifier.Verify(token)
	require.NoError(t, err)

	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "alice@example.com", got.Username)
	require.Equal(t, "Alice", got.GivenName)
	require.Equal(t, "", got.FamilyName)
	require.Equal(t, "alice@example.com", got.Email)
	require.Equal(t, []string{"User", "PowerUser"}, got.Roles)
	require.Equal(t, "identity-test", got.Issuer)
	require.Equal(t, jwt.ClaimStrings{"invopay-api"}, got.Audience)
	require.NotEmpty(t, got.ID, "jti must be set")
	require.WithinDuration(t, now.Add(15*time.Minute), got.ExpiresAt.Time, time.Second)
}

func TestDuplicateRolesPassThrough(t *testing.T) {
	t.Parallel()

	signer, verifier := newPair(t, testConfig())

	claims := NewIdentityClaims("u", "u@x", "", "", "u@x", []string{"User", "User"})
	token, err := signer.Issue(claims, time.Now())
	require.NoError(t, err)

	got, err := verifier.VerifyStructure(token)
	require.NoError(t, err)
	require.Equal(t, []string{"User", "User"}, got.Roles, "duplicates must not collapse")
}

func TestVerifyStructureIgnoresExpiry(t *testing.T) {
	t.Parallel()

	signer, verifier := newPair(t, testConfig())

	// Issued an hour ago with a 15m TTL: long expired, still authentic.
	token, err := signer.Issue(NewIdentityClaims("u", "u@x", "", "", "u@x", nil), time.Now().Add(-time.Hour))
	require.NoError(t, err)

	claims, err := verifier.VerifyStructure(token)
	require.NoError(t, err, "structure check must not fail on expiry")
	require.Equal(t, "u", claims.Subject)

	require.ErrorIs(t, claims.ValidateExpiry(time.Now()), ErrExpired)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyStructureRejectsTampering(t *testing.T) {
	t.Parallel()

	signer, verifier := newPair(t, testConfig())

	token, err := signer.Issue(NewIdentityClaims("u", "u@x", "", "", "u@x", nil), time.Now())
	require.NoError(t, err)

	t.Run("flipped signature byte", func(t *testing.T) {
		parts := strings.Split(token, ".")
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		tampered := parts[0] + "." + parts[1] + "." + string(sig)

		_, err := verifier.VerifyStructure(tampered)
		require.ErrorIs(t, err, ErrInvalidSig)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := verifier.VerifyStructure("not-a-jwt")
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := testConfig()
		other.Secret = []byte("ffffffffffffffffffffffffffffffff")
		otherVerifier, err := NewVerifierHS256(other)
		require.NoError(t, err)

		_, err = otherVerifier.VerifyStructure(token)
		require.ErrorIs(t, err, ErrInvalidSig)
	})
}

func TestVerifyStructureRejectsAlgorithmConfusion(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	_, verifier := newPair(t, cfg)

	t.Run("none algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, NewIdentityClaims("u", "u@x", "", "", "u@x", nil))
		signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.VerifyStructure(signed)
		require.Error(t, err)
	})

	t.Run("HS384 signed", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS384, NewIdentityClaims("u", "u@x", "", "", "u@x", nil))
		signed, err := tok.SignedString(cfg.Secret)
		require.NoError(t, err)

		_, err = verifier.VerifyStructure(signed)
		require.Error(t, err)
	})
}

func TestVerifyStructureRejectsWrongIssuerAudience(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	signer, _ := newPair(t, cfg)

	token, err := signer.Issue(NewIdentityClaims("u", "u@x", "", "", "u@x", nil), time.Now())
	require.NoError(t, err)

	t.Run("issuer mismatch", func(t *testing.T) {
		other := cfg
		other.Issuer = "someone-else"
		v, err := NewVerifierHS256(other)
		require.NoError(t, err)

		_, err = v.VerifyStructure(token)
		require.ErrorIs(t, err, ErrIssuer)
	})

	t.Run("audience mismatch", func(t *testing.T) {
		other := cfg
		other.Audience = "other-api"
		v, err := NewVerifierHS256(other)
		require.NoError(t, err)

		_, err = v.VerifyStructure(token)
		require.ErrorIs(t, err, ErrAudience)
	})
}
