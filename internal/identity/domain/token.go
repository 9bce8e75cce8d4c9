package domain

import "time"

// TokenPair is what a successful login or refresh returns: the signed
// short-lived access token (JWT) and the opaque single-use refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until access token expiry
}

// RegisterResult reports the outcome of an account registration. Errors is a
// list of human-readable descriptions; registration is the one flow that may
// return structured failure detail since no account exists to enumerate
// against. No tokens are issued here, the caller logs in afterwards.
type RegisterResult struct {
	Succeeded bool     `json:"succeeded"`
	Errors    []string `json:"errors,omitempty"`
}
