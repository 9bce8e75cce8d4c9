package httpx

import (
	"context"
	"net/http"
	"strings"
)

// ActiveAccountChecker decides whether an authenticated account is currently
// active. Implemented by the identity authorization service; the check hits
// the store on every call so lockouts take effect immediately.
type ActiveAccountChecker interface {
	ActiveAccountCheck(ctx context.Context, userID string) bool
}

// RequireAnyRole gates the wrapped handler on the caller holding at least one
// of the required roles (logical OR). An empty required set admits any
// authenticated caller.
func RequireAnyRole(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !claims.HasAnyRole(required...) {
				writeBearerRoleError(w, required...)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireActiveAccount gates the wrapped handler on the account not being
// locked out. Must run after AuthnMiddleware.
func RequireActiveAccount(checker ActiveAccountChecker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if userID == "" || !checker.ActiveAccountCheck(r.Context(), userID) {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte("account_inactive"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-style error response for missing role membership.
func writeBearerRoleError(w http.ResponseWriter, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("insufficient_role"))
}
