package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopay/identity/internal/identity/service"
	"github.com/invopay/identity/pkg/authsdk"
	"github.com/invopay/identity/pkg/httpx"
	"github.com/invopay/identity/pkg/slogx"
)

var validate = validator.New()

// AuthHandler serves the login, refresh, and register endpoints. All three
// accept application/json bodies.
type AuthHandler struct {
	IdentityService *service.IdentityService
}

// HandleLogin serves POST /v1/auth/login. On success it returns a fresh token
// pair; any prior refresh token for the account stops working. Every failure
// mode maps to the same 401 so callers cannot probe which part was wrong.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.IdentityService.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrDenied) {
			authsdk.ErrAuthenticationFailed.WriteError(w)
			return
		}
		log.Error("login failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}

// HandleRefresh serves POST /v1/auth/refresh. The presented access token may
// be expired but must be authentic; the refresh token must be the live one.
// The exchange consumes the old refresh token: of two concurrent calls with
// the same pair, exactly one succeeds.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.IdentityService.Refresh(ctx, req.AccessToken, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrDenied) {
			authsdk.ErrAuthenticationFailed.WriteError(w)
			return
		}
		log.Error("refresh failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}

// HandleRegister serves POST /v1/auth/register. Policy violations come back
// as a 400 with the full list of violated rules; success is a 200 with no
// tokens, the caller logs in afterwards.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.IdentityService.Register(ctx, req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		log.Error("register failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	status := http.StatusOK
	if !result.Succeeded {
		status = http.StatusBadRequest
	}
	httpx.WriteJSON(w, status, authsdk.RegisterResponse{
		Succeeded: result.Succeeded,
		Errors:    result.Errors,
	})
}

// decodeAndValidate decodes a JSON body into req and runs struct validation.
// On failure it writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/json") {
		authsdk.ErrInvalidRequest.WriteError(w)
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return false
	}

	if err := validate.Struct(req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return false
	}

	return true
}
