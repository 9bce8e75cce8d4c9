package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/invopay/identity/internal/identity/store"
	"github.com/invopay/identity/pkg/jwtx"
	"github.com/invopay/identity/pkg/slogx"
)

// AuthzService evaluates per-request authorization requirements. Its two
// predicates are independent; the transport layer composes them in front of
// protected handlers.
type AuthzService struct {
	Store store.Store
}

// RoleCheck allows iff the authenticated claims carry at least one of the
// required roles (logical OR). An empty requirement admits any authenticated
// identity. Pure: no store access, no side effects.
func (s *AuthzService) RoleCheck(claims jwtx.Claims, required ...string) bool {
	return claims.HasAnyRole(required...)
}

// ActiveAccountCheck allows iff the account exists and is not currently
// locked out. It hits the store on every call, never a cache, so a lockout
// applied a moment ago denies the very next request. A deleted user denies
// without raising.
func (s *AuthzService) ActiveAccountCheck(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Error("active-account lookup failed",
				slog.Any("error", err), slog.String("user_id", userID))
		}
		return false
	}

	return !user.IsLockedOut(time.Now())
}
