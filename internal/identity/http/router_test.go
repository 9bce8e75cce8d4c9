package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/invopay/identity/internal/identity/service"
	"github.com/invopay/identity/internal/identity/store"
	"github.com/invopay/identity/internal/identity/store/drivers/sqlite"
	"github.com/invopay/identity/pkg/authsdk"
	"github.com/invopay/identity/pkg/cryptox"
	"github.com/invopay/identity/pkg/jwtx"
	"github.com/invopay/identity/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	dir := t.TempDir()
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	st, err := sqlite.NewStore("file:" + filepath.Join(dir, "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

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

	logger := slogx.New(slogx.Config{Service: "identity-test", Level: "error", Format: "text"})

	router := NewRouter(verifier, "test", st, logger)
	router.IdentityService = &service.IdentityService{
		Store:      st,
		Signer:     signer,
		Verifier:   verifier,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	router.AuthzService = &service.AuthzService{Store: st}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, st
}

func registerAndLogin(t *testing.T, client *authsdk.Client, email, password string) *authsdk.Session {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, client.Register(ctx, authsdk.RegisterRequest{
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     email,
		Password:  password,
	}))

	session, err := client.Login(ctx, email, password)
	require.NoError(t, err)
	return session
}

func TestAuthFlowEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)
	client := authsdk.NewClient(srv.URL)
	ctx := context.Background()

	session := registerAndLogin(t, client, "alice@example.com", "Sup3rSecret")

	info, err := session.UserInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", info.Username)
	require.Equal(t, "alice@example.com", info.Email)
	require.Equal(t, "Alice", info.GivenName)
	require.Equal(t, "Smith", info.FamilyName)
	require.Equal(t, []string{"User"}, info.Roles)
	require.NotEmpty(t, info.ID)

	// Rotate explicitly and confirm the old pair is consumed.
	oldAccess := session.AccessToken()
	oldRefresh := session.RefreshToken()

	rotated, err := client.Refresh(ctx, oldAccess, oldRefresh)
	require.NoError(t, err)
	require.NotEqual(t, oldRefresh, rotated.RefreshToken)
	require.Equal(t, "Bearer", rotated.TokenType)

	_, err = client.Refresh(ctx, oldAccess, oldRefresh)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeAuthenticationFailed, apiErr.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)
	client := authsdk.NewClient(srv.URL)
	ctx := context.Background()

	registerAndLogin(t, client, "alice@example.com", "Sup3rSecret")

	// Wrong password and unknown account produce identical errors.
	_, wrongPass := client.Login(ctx, "alice@example.com", "WrongPassw0rd")
	_, unknown := client.Login(ctx, "nobody@example.com", "Sup3rSecret")

	for _, err := range []error{wrongPass, unknown} {
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		require.Equal(t, authsdk.ErrorCodeAuthenticationFailed, apiErr.Code)
	}
}

func TestRegisterReportsAllViolations(t *testing.T) {
	srv, _ := newTestServer(t)
	client := authsdk.NewClient(srv.URL)

	err := client.Register(context.Background(), authsdk.RegisterRequest{
		FirstName: "Bob",
		Email:     "bob@example.com",
		Password:  "abc",
	})

	var regErr *authsdk.RegistrationError
	require.ErrorAs(t, err, &regErr)
	require.Len(t, regErr.Errors, 3)
}

func TestUserInfoRequiresBearerToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/users/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
}

func TestLockedOutAccountIsDenied(t *testing.T) {
	srv, st := newTestServer(t)
	client := authsdk.NewClient(srv.URL)
	ctx := context.Background()

	session := registerAndLogin(t, client, "alice@example.com", "Sup3rSecret")

	info, err := session.UserInfo(ctx)
	require.NoError(t, err)

	until := time.Now().Add(time.Hour)
	require.NoError(t, st.Users().SetLockoutEnd(ctx, info.ID, &until))

	// Token is still cryptographically valid; the active-account gate denies.
	_, err = session.UserInfo(ctx)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	// Fresh logins are refused outright.
	_, err = client.Login(ctx, "alice@example.com", "Sup3rSecret")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	client := authsdk.NewClient(srv.URL)

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)

	resp, err := http.Get(srv.URL + "/livez")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
