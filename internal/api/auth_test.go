package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joltcab/console/internal/model"
	"github.com/joltcab/console/internal/session"
	"github.com/joltcab/console/internal/store"
	"github.com/joltcab/console/internal/testutil"
)

var rider = model.User{
	ID:       "u-1",
	Email:    "rider@joltcab.com",
	FullName: "Rider One",
	Role:     model.RolePassenger,
}

type recordingNavigator struct {
	urls []string
	err  error
}

func (n *recordingNavigator) Navigate(u string) error {
	n.urls = append(n.urls, u)
	return n.err
}

func newTestAPI(t *testing.T, b *testutil.Backend, nav Navigator) (*API, *session.Store) {
	t.Helper()
	sess := session.New(nil)
	a := New(Options{BaseURL: b.URL()}, sess, OAuthOptions{
		RedirectURI: "http://localhost:8765/auth/callback",
	}, nav)
	return a, sess
}

func TestLoginTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)
	b.AddUser(rider, "s3cret")
	b.Respond(http.MethodGet, "/trips", http.StatusOK, testutil.OK(map[string]interface{}{}))

	a, sess := newTestAPI(t, b, nil)

	result, err := a.Auth.Login(ctx, rider.Email, "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, result.Token, sess.Token())
	require.NotNil(t, result.User)
	assert.Equal(t, rider.ID, result.User.ID)

	_, err = a.Trips.List(ctx, nil)
	require.NoError(t, err)
	req, ok := b.LastRequest(http.MethodGet, "/trips")
	require.True(t, ok)
	assert.Equal(t, "Bearer "+result.Token, req.Header.Get("Authorization"))

	me, err := a.Auth.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, rider.Email, me.Email)

	require.NoError(t, a.Auth.Logout(ctx))
	assert.Empty(t, sess.Token())

	_, err = a.Trips.List(ctx, nil)
	require.NoError(t, err)
	req, ok = b.LastRequest(http.MethodGet, "/trips")
	require.True(t, ok)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestLoginInvalidCredentials(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)
	b.AddUser(rider, "s3cret")

	a, sess := newTestAPI(t, b, nil)

	_, err := a.Auth.Login(ctx, rider.Email, "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.True(t, IsUnauthorized(err))
	assert.Empty(t, sess.Token())
}

func TestLoginFailureKeepsExistingToken(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)

	a, sess := newTestAPI(t, b, nil)
	require.NoError(t, sess.SetToken(ctx, "previous"))

	_, err := a.Auth.Login(ctx, "nobody@joltcab.com", "x")
	require.Error(t, err)
	assert.Equal(t, "previous", sess.Token())
}

type failingStore struct {
	store.Store
}

func (failingStore) Set(ctx context.Context, key, value string) error {
	return errors.New("keyring locked")
}

func TestLoginPersistFailureLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)
	b.AddUser(rider, "s3cret")

	sess := session.New(failingStore{Store: store.NewMemoryStore()})
	a := New(Options{BaseURL: b.URL()}, sess, OAuthOptions{}, nil)

	_, err := a.Auth.Login(ctx, rider.Email, "s3cret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyring locked")
	assert.Empty(t, sess.Token())
	assert.False(t, sess.Authenticated())
}

func TestLoginWithoutTokenIsAnError(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)
	b.Respond(http.MethodPost, "/auth/login", http.StatusOK,
		testutil.OK(map[string]interface{}{"user": rider}))

	a, sess := newTestAPI(t, b, nil)

	_, err := a.Auth.Login(ctx, rider.Email, "s3cret")
	require.ErrorIs(t, err, ErrNoToken)
	assert.Empty(t, sess.Token())
}

func TestLoginRejectedEnvelope(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)
	b.Respond(http.MethodPost, "/auth/login", http.StatusOK,
		map[string]interface{}{"success": false, "message": "Account suspended"})

	a, sess := newTestAPI(t, b, nil)

	_, err := a.Auth.Login(ctx, rider.Email, "s3cret")
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.Equal(t, "Account suspended", err.Error())
	assert.Empty(t, sess.Token())
}

func TestRegisterDoesNotLogIn(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)
	b.Respond(http.MethodPost, "/auth/register", http.StatusCreated, testutil.OK(map[string]interface{}{
		"user":  rider,
		"token": "should-not-be-used",
	}))

	a, sess := newTestAPI(t, b, nil)

	u, err := a.Auth.Register(ctx, model.RegisterRequest{
		FullName: rider.FullName,
		Email:    rider.Email,
		Password: "s3cret",
	})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, rider.ID, u.ID)
	assert.Empty(t, sess.Token())
}

func TestMeRequiresDocumentedShape(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)
	b.Respond(http.MethodGet, "/auth/me", http.StatusOK, testutil.OK(rider))

	a, _ := newTestAPI(t, b, nil)

	_, err := a.Auth.Me(ctx)
	require.ErrorIs(t, err, ErrUnexpectedShape)
}

func TestLogoutClearsLocalStateWhenServerFails(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)
	b.Respond(http.MethodPost, "/auth/logout", http.StatusInternalServerError,
		map[string]interface{}{"error": "boom"})

	a, sess := newTestAPI(t, b, nil)
	require.NoError(t, sess.SetToken(ctx, "tok"))

	require.NoError(t, a.Auth.Logout(ctx))
	assert.Empty(t, sess.Token())

	_, ok := b.LastRequest(http.MethodPost, "/auth/logout")
	assert.True(t, ok)
}

func TestLogoutLocalSkipsServer(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)

	a, sess := newTestAPI(t, b, nil)
	require.NoError(t, sess.SetToken(ctx, "tok"))

	require.NoError(t, a.Auth.LogoutLocal(ctx))
	assert.Empty(t, sess.Token())
	assert.Empty(t, b.Requests())
}

func TestPasswordFlows(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)
	for _, p := range []string{"/auth/forgot-password", "/auth/reset-password", "/auth/change-password", "/auth/verify-email"} {
		b.Respond(http.MethodPost, p, http.StatusOK, map[string]interface{}{"success": true})
	}

	a, _ := newTestAPI(t, b, nil)

	require.NoError(t, a.Auth.ForgotPassword(ctx, rider.Email))
	require.NoError(t, a.Auth.ResetPassword(ctx, "reset-tok", "n3w"))
	require.NoError(t, a.Auth.ChangePassword(ctx, "old", "n3w"))
	require.NoError(t, a.Auth.VerifyEmail(ctx, "123456"))

	req, ok := b.LastRequest(http.MethodPost, "/auth/reset-password")
	require.True(t, ok)
	var body map[string]string
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "reset-tok", body["token"])
	assert.Equal(t, "n3w", body["password"])
}

func TestOAuthRedirect(t *testing.T) {
	b := testutil.NewBackend(t)
	nav := &recordingNavigator{}
	a, _ := newTestAPI(t, b, nav)

	require.NoError(t, a.Auth.GoogleLogin(model.RoleDriver))
	require.NoError(t, a.Auth.AppleLogin(""))
	require.Len(t, nav.urls, 2)

	u, err := url.Parse(nav.urls[0])
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/google", u.Path)
	q := u.Query()
	assert.Equal(t, "http://localhost:8765/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, model.RoleDriver, q.Get("role"))
	assert.NotEmpty(t, q.Get("state"))

	u, err = url.Parse(nav.urls[1])
	require.NoError(t, err)
	assert.Equal(t, "/api/auth/apple", u.Path)
	assert.Equal(t, model.RolePassenger, u.Query().Get("role"))
}

func TestOAuthRedirectNavigationError(t *testing.T) {
	b := testutil.NewBackend(t)
	nav := &recordingNavigator{err: errors.New("no browser")}
	a, _ := newTestAPI(t, b, nav)

	err := a.Auth.FacebookLogin("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no browser")
}

func TestOAuthCallback(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)
	b.Respond(http.MethodPost, "/auth/google/callback", http.StatusOK,
		testutil.OK(map[string]interface{}{"token": "oauth-token", "user": rider}))

	nav := &recordingNavigator{}
	a, sess := newTestAPI(t, b, nav)
	require.NoError(t, a.Auth.GoogleLogin(""))

	u, err := url.Parse(nav.urls[0])
	require.NoError(t, err)
	state := u.Query().Get("state")

	_, err = a.Auth.OAuthCallback(ctx, ProviderGoogle, "code", "forged")
	require.Error(t, err)
	assert.Empty(t, sess.Token())

	result, err := a.Auth.OAuthCallback(ctx, ProviderGoogle, "code", state)
	require.NoError(t, err)
	assert.Equal(t, "oauth-token", result.Token)
	assert.Equal(t, "oauth-token", sess.Token())
}

func TestImpersonation(t *testing.T) {
	ctx := context.Background()
	b := testutil.NewBackend(t)
	b.Respond(http.MethodPost, "/admin/users/u-1/impersonate", http.StatusOK,
		testutil.OK(map[string]interface{}{"token": "as-rider", "user": rider}))

	a, sess := newTestAPI(t, b, nil)
	require.NoError(t, sess.SetToken(ctx, "admin-token"))

	require.ErrorIs(t, a.Auth.StopImpersonation(ctx), ErrNotImpersonating)

	_, err := a.Auth.Impersonate(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "as-rider", sess.Token())
	assert.True(t, a.Auth.Impersonating())

	require.NoError(t, a.Auth.StopImpersonation(ctx))
	assert.Equal(t, "admin-token", sess.Token())
	assert.False(t, a.Auth.Impersonating())
}
