package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/invopay/identity/internal/identity/domain"
	"github.com/invopay/identity/internal/identity/store"
	"github.com/invopay/identity/pkg/cryptox"
	"github.com/invopay/identity/pkg/idx"
	"github.com/invopay/identity/pkg/jwtx"
	"github.com/invopay/identity/pkg/slogx"
)

// ErrDenied is the single outcome every authentication failure collapses to
// at the API boundary. The sentinels below wrap it so internal callers and
// tests can still distinguish causes, while transport handlers match only
// ErrDenied and leak nothing that would let a caller enumerate accounts.
var ErrDenied = errors.New("authentication denied")

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrDenied)
	ErrTokenVerification  = fmt.Errorf("%w: access token verification failed", ErrDenied)
	ErrRefreshExpired     = fmt.Errorf("%w: refresh token absent or expired", ErrDenied)
	ErrRefreshMismatch    = fmt.Errorf("%w: refresh token mismatch", ErrDenied)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrDenied)
)

// IdentityService orchestrates the login, refresh, and registration flows.
// It holds no cross-call state: everything durable lives in the store, so
// instances are safe for concurrent use and the service is replicable.
type IdentityService struct {
	Store      store.Store
	Signer     *jwtx.HS256Signer
	Verifier   *jwtx.HS256Verifier
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login verifies credentials and, on success, issues a fresh token pair.
// Any prior refresh token for the user is overwritten and becomes unusable
// immediately, expired or not.
func (s *IdentityService) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.IsLockedOut(now) {
		l.Info("login rejected for locked-out account", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login password verification failed", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	roles, err := s.Store.Roles().GetRoleNamesByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	pair, refreshHash, err := s.issuePair(user, roles, now)
	if err != nil {
		return nil, err
	}

	if err := s.Store.Users().SetRefreshToken(ctx, user.ID, refreshHash, now.Add(s.RefreshTTL)); err != nil {
		return nil, err
	}

	return pair, nil
}

// Refresh exchanges an authentic (possibly expired) access token plus the
// matching live refresh token for a new pair. The rotation is a conditional
// store update, so of two concurrent refreshes presenting the same token
// exactly one succeeds.
func (s *IdentityService) Refresh(ctx context.Context, accessToken, refreshToken string) (*domain.TokenPair, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	// Signature, algorithm, issuer, and audience must all check out; expiry
	// deliberately must not. The access token here is proof of a prior
	// legitimate session, not of a current one.
	claims, err := s.Verifier.VerifyStructure(accessToken)
	if err != nil {
		l.Info("refresh access token rejected", slog.Any("error", err))
		return nil, ErrTokenVerification
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !user.HasLiveRefreshToken(now) {
		return nil, ErrRefreshExpired
	}

	// Claims are rebuilt from the current record, not from the old token,
	// so role changes take effect on the very next refresh.
	roles, err := s.Store.Roles().GetRoleNamesByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	pair, nextHash, err := s.issuePair(user, roles, now)
	if err != nil {
		return nil, err
	}

	presentedHash := cryptox.FingerprintToken(refreshToken)
	err = s.Store.Users().RotateRefreshToken(ctx, user.ID, presentedHash, nextHash, now.Add(s.RefreshTTL))
	if err != nil {
		if errors.Is(err, store.ErrStaleRefreshToken) {
			l.Warn("refresh token mismatch, possible replay", slog.String("user_id", user.ID))
			return nil, ErrRefreshMismatch
		}
		return nil, err
	}

	return pair, nil
}

// Register creates a new account with the email as username and grants the
// default "User" role. Validation failures come back as a description list
// in the result, not as an error; no tokens are issued, the caller logs in
// afterwards.
func (s *IdentityService) Register(ctx context.Context, firstName, lastName, email, password string) (*domain.RegisterResult, error) {
	l := slogx.FromContext(ctx)

	if descriptions := validatePassword(password); len(descriptions) > 0 {
		return &domain.RegisterResult{Succeeded: false, Errors: descriptions}, nil
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     email,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
	}

	// User row and default role grant commit together: a failure on either
	// side leaves no half-registered account behind.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.Roles().AddUserToRole(ctx, user.ID, domain.RoleUser)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return &domain.RegisterResult{
				Succeeded: false,
				Errors:    []string{fmt.Sprintf("Username '%s' is already taken.", email)},
			}, nil
		}
		return nil, err
	}

	l.Info("user registered", slog.String("user_id", user.ID))
	return &domain.RegisterResult{Succeeded: true}, nil
}

// issuePair builds claims from the user record, signs an access token, and
// generates a fresh opaque refresh token. Returns the pair plus the refresh
// token's fingerprint for the store.
func (s *IdentityService) issuePair(
	u domain.User,
	roles []string,
	now time.Time,
) (*domain.TokenPair, string, error) {
	claims := jwtx.NewIdentityClaims(u.ID, u.Username, u.FirstName, u.LastName, u.Email, roles)

	access, err := s.Signer.Issue(claims, now)
	if err != nil {
		return nil, "", err
	}

	refresh, err := cryptox.GenerateToken(cryptox.TokenSizeRefresh)
	if err != nil {
		return nil, "", err
	}

	pair := &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}
	return pair, cryptox.FingerprintToken(refresh), nil
}
