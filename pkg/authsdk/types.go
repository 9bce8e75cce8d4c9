package authsdk

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body for POST /v1/auth/refresh. The access token may
// be expired; it must still be authentic. The refresh token must match the
// one most recently issued to the account.
type RefreshRequest struct {
	AccessToken  string `json:"access_token"  validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RegisterRequest is the body for POST /v1/auth/register. The email doubles
// as the username of the new account.
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required"`
}

// TokenResponse is the success body for login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// RegisterResponse reports the outcome of a registration attempt. On failure
// Errors lists every violated rule so the caller can show them all at once.
type RegisterResponse struct {
	Succeeded bool     `json:"succeeded"`
	Errors    []string `json:"errors,omitempty"`
}

// UserInfoResponse is the body for GET /v1/users/me, built from the verified
// access-token claims.
type UserInfoResponse struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	GivenName  string   `json:"given_name"`
	FamilyName string   `json:"family_name"`
	Email      string   `json:"email"`
	Roles      []string `json:"roles"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// HealthResponse is the body for the livez and readyz probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks carries per-dependency status for the readiness probe.
type HealthChecks struct {
	Database string `json:"database"`
}
