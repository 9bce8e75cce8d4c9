package http

import (
	"net/http"

	"github.com/invopay/identity/pkg/authsdk"
	"github.com/invopay/identity/pkg/httpx"
)

// UserInfoHandler serves GET /v1/users/me. The response is built entirely
// from the verified access-token claims; the active-account gate in front of
// it already hit the store this request.
type UserInfoHandler struct{}

func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		ID:         claims.Subject,
		Username:   claims.Username,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Email:      claims.Email,
		Roles:      claims.Roles,
	})
}
