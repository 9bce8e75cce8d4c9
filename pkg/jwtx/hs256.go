package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// MinSecretBytes is the smallest accepted HMAC secret. Anything shorter than
// the hash output weakens HS256 below its design strength.
const MinSecretBytes = 32

// Config carries the symmetric signing material and the token expectations
// shared by the signer and verifier. Immutable once constructed; inject it,
// never reach for a process-wide singleton.
type Config struct {
	Secret    []byte
	Issuer    string
	Audience  string
	AccessTTL time.Duration
}

func (c Config) validate() error {
	if len(c.Secret) < MinSecretBytes {
		return fmt.Errorf("jwtx: secret must be at least %d bytes, got %d", MinSecretBytes, len(c.Secret))
	}
	if c.Issuer == "" {
		return errors.New("jwtx: issuer is required")
	}
	if c.Audience == "" {
		return errors.New("jwtx: audience is required")
	}
	if c.AccessTTL <= 0 {
		return errors.New("jwtx: access ttl must be positive")
	}
	return nil
}

// HS256Signer issues HMAC-SHA-256 signed access tokens.
type HS256Signer struct {
	cfg Config
}

// NewSignerHS256 creates an HS256 signer from the given config.
func NewSignerHS256(cfg Config) (*HS256Signer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &HS256Signer{cfg: cfg}, nil
}

// Alg returns the JOSE algorithm name this signer produces.
func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Issue stamps the registered claims (iss, aud, iat, nbf, exp, jti) onto the
// identity claims and signs the result. Deterministic given identical claims,
// time, and jti; never fails for well-formed claim sets.
func (s *HS256Signer) Issue(claims Claims, now time.Time) (string, error) {
	now = now.UTC()

	claims.Issuer = s.cfg.Issuer
	claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.cfg.AccessTTL))
	claims.ID = uuid.NewString()

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
}

// HS256Verifier validates tokens signed with the configured secret.
type HS256Verifier struct {
	cfg    Config
	parser *jwt.Parser
}

// NewVerifierHS256 creates a verifier bound to the same config as the signer.
func NewVerifierHS256(cfg Config) (*HS256Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &HS256Verifier{
		cfg: cfg,
		// WithoutClaimsValidation: expiry is the caller's decision, not the
		// codec's. The refresh flow needs claims out of expired tokens.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// VerifyStructure checks the token's form, signing algorithm, signature,
// issuer, and audience. It does NOT check expiry: callers that need a live
// session must additionally call Claims.ValidateExpiry. Callers that need
// proof of a prior legitimate issuance (the refresh flow) use the result
// as-is.
func (v *HS256Verifier) VerifyStructure(tokenStr string) (Claims, error) {
	token, err := v.parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(v.cfg.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.cfg.Audience); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// Verify is VerifyStructure plus an expiry check against the current time.
// This is the entry point for per-request authentication.
func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	claims, err := v.VerifyStructure(tokenStr)
	if err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(time.Now()); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrAlgMismatch, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
