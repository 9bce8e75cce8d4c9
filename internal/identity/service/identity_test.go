package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/invopay/identity/internal/identity/domain"
	"github.com/invopay/identity/internal/identity/store"
	"github.com/invopay/identity/internal/identity/store/drivers/sqlite"
	"github.com/invopay/identity/pkg/cryptox"
	"github.com/invopay/identity/pkg/idx"
	"github.com/invopay/identity/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestService(t *testing.T, st store.Store) *IdentityService {
	t.Helper()

	cfg := jwtx.Config{
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:    "identity-test",
		Audience:  "invopay-api",
		AccessTTL: 15 * time.Minute,
	}

	signer, err := jwtx.NewSignerHS256(cfg)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(cfg)
	require.NoError(t, err)

	return &IdentityService{
		Store:      st,
		Signer:     signer,
		Verifier:   verifier,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

func seedUser(t *testing.T, st store.Store, username, password string, roles ...string) domain.User {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		FirstName:    "Alice",
		LastName:     "Smith",
		Email:        username,
		PasswordHash: hash,
	}
	require.NoError(t, st.Users().CreateUser(ctx, u))

	for _, role := range roles {
		require.NoError(t, st.Roles().AddUserToRole(ctx, u.ID, role))
	}
	return u
}

func TestLoginIssuesPairWithIdentityClaims(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	u := seedUser(t, st, "alice@example.com", "Sup3rSecret", domain.RoleUser)

	pair, err := svc.Login(ctx, "alice@example.com", "Sup3rSecret")
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.Verifier.VerifyStructure(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.Subject)
	require.Equal(t, "alice@example.com", claims.Username)
	require.Equal(t, "Alice", claims.GivenName)
	require.Equal(t, "Smith", claims.FamilyName)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, []string{"User"}, claims.Roles)

	// The stored fingerprint must correspond to the returned opaque token.
	stored, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, cryptox.FingerprintToken(pair.RefreshToken), stored.RefreshTokenHash)
	require.NotNil(t, stored.RefreshTokenExpiresAt)
}

func TestLoginFailuresCollapseToDenied(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	seedUser(t, st, "alice@example.com", "Sup3rSecret", domain.RoleUser)

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "whatever")
		require.ErrorIs(t, err, ErrDenied)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "alice@example.com", "wrong")
		require.ErrorIs(t, err, ErrDenied)
	})

	t.Run("locked-out account", func(t *testing.T) {
		u := seedUser(t, st, "bob@example.com", "Sup3rSecret", domain.RoleUser)
		until := time.Now().Add(time.Hour)
		require.NoError(t, st.Users().SetLockoutEnd(ctx, u.ID, &until))

		_, err := svc.Login(ctx, "bob@example.com", "Sup3rSecret")
		require.ErrorIs(t, err, ErrDenied)
	})
}

func TestLoginOverwritesPriorRefreshToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	seedUser(t, st, "alice@example.com", "Sup3rSecret", domain.RoleUser)

	first, err := svc.Login(ctx, "alice@example.com", "Sup3rSecret")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "alice@example.com", "Sup3rSecret")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The first pair's refresh token was superseded and must fail closed.
	_, err = svc.Refresh(ctx, first.AccessToken, first.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshMismatch)
}

func TestRefreshRotatesAndIsSingleUse(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	seedUser(t, st, "alice@example.com", "Sup3rSecret", domain.RoleUser)

	pair, err := svc.Login(ctx, "alice@example.com", "Sup3rSecret")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken, "refresh token must rotate")

	// Replaying the consumed token fails.
	_, err = svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshMismatch)

	// The rotated pair keeps working.
	_, err = svc.Refresh(ctx, next.AccessToken, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	u := seedUser(t, st, "alice@example.com", "Sup3rSecret", domain.RoleUser)

	pair, err := svc.Login(ctx, "alice@example.com", "Sup3rSecret")
	require.NoError(t, err)

	// Sign a long-expired access token with the same key and subject; the
	// refresh flow must accept it as proof of prior issuance.
	claims := jwtx.NewIdentityClaims(u.ID, u.Username, u.FirstName, u.LastName, u.Email, []string{"User"})
	expired, err := svc.Signer.Issue(claims, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)

	_, err = svc.Verifier.Verify(expired)
	require.ErrorIs(t, err, jwtx.ErrExpired, "sanity: the token really is expired")

	next, err := svc.Refresh(ctx, expired, pair.RefreshToken)
	require.NoError(t, err, "expired access token must not by itself deny refresh")
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)
}

func TestRefreshRejectsTamperedAccessToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	seedUser(t, st, "alice@example.com", "Sup3rSecret", domain.RoleUser)

	pair, err := svc.Login(ctx, "alice@example.com", "Sup3rSecret")
	require.NoError(t, err)

	parts := strings.Split(pair.AccessToken, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = svc.Refresh(ctx, tampered, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenVerification, "tampered signature denies regardless of refresh validity")
}

func TestRefreshRejectsExpiredStoredToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	u := seedUser(t, st, "alice@example.com", "Sup3rSecret", domain.RoleUser)

	pair, err := svc.Login(ctx, "alice@example.com", "Sup3rSecret")
	require.NoError(t, err)

	// Backdate the stored expiry.
	require.NoError(t, st.Users().SetRefreshToken(ctx, u.ID,
		cryptox.FingerprintToken(pair.RefreshToken), time.Now().Add(-time.Minute)))

	_, err = svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshExpired)
}

func TestRefreshPicksUpRoleChanges(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	u := seedUser(t, st, "alice@example.com", "Sup3rSecret", domain.RoleUser)

	pair, err := svc.Login(ctx, "alice@example.com", "Sup3rSecret")
	require.NoError(t, err)

	require.NoError(t, st.Roles().AddUserToRole(ctx, u.ID, domain.RoleAdministrator))

	next, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.Verifier.VerifyStructure(next.AccessToken)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"User", "Administrator"}, claims.Roles,
		"role grants take effect on the next refresh")
}

func TestConcurrentRefreshExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	seedUser(t, st, "alice@example.com", "Sup3rSecret", domain.RoleUser)

	pair, err := svc.Login(ctx, "alice@example.com", "Sup3rSecret")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	var wins, mismatches int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrRefreshMismatch):
			mismatches++
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}
	require.Equal(t, 1, wins, "exactly one concurrent refresh may succeed")
	require.Equal(t, 1, mismatches, "the loser must observe a mismatch")
}

func TestRegisterHappyPath(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	res, err := svc.Register(ctx, "Carol", "Jones", "carol@example.com", "Sup3rSecret")
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	require.Empty(t, res.Errors)

	// Registration issues no tokens; login afterwards works and the default
	// role is present.
	pair, err := svc.Login(ctx, "carol@example.com", "Sup3rSecret")
	require.NoError(t, err)

	claims, err := svc.Verifier.VerifyStructure(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, []string{"User"}, claims.Roles)
	require.Equal(t, "carol@example.com", claims.Username, "email doubles as username")
}

func TestRegisterReportsPolicyViolations(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	res, err := svc.Register(ctx, "Carol", "Jones", "carol@example.com", "weak")
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	require.NotEmpty(t, res.Errors)

	// Nothing was persisted.
	_, err = st.Users().GetUserByUsername(ctx, "carol@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newTestService(t, st)

	res, err := svc.Register(ctx, "Carol", "Jones", "carol@example.com", "Sup3rSecret")
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	res, err = svc.Register(ctx, "Other", "Person", "carol@example.com", "An0therSecret")
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0], "already taken")
}
