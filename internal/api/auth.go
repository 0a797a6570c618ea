package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/joltcab/console/internal/logger"
	"github.com/joltcab/console/internal/model"
)

// OAuth providers supported by the backend.
const (
	ProviderGoogle   = "google"
	ProviderApple    = "apple"
	ProviderFacebook = "facebook"
)

// oauthClientID identifies this client to the backend's OAuth bridge.
const oauthClientID = "joltcab-console"

// TokenStore is the session the auth facade commits tokens to.
type TokenStore interface {
	Token() string
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Navigator performs a full navigation to an external URL, typically by
// opening the system browser.
type Navigator interface {
	Navigate(url string) error
}

// OAuthOptions configures the OAuth redirect initiators.
type OAuthOptions struct {
	RedirectURI string
	DefaultRole string
}

// AuthResult is what a successful login-like call returns: the committed
// token, the user when the backend included one, and the raw envelope.
type AuthResult struct {
	Token    string
	User     *model.User
	Envelope *Envelope
}

// AuthService implements the login, registration, logout, password and
// OAuth flows on top of the request executor and the session.
type AuthService struct {
	client    *Client
	session   TokenStore
	oauth     OAuthOptions
	navigator Navigator
	log       *logger.Logger

	mu           sync.Mutex
	pendingState string
	adminToken   string
}

// NewAuthService creates the auth facade.
func NewAuthService(
	c *Client,
	session TokenStore,
	oauth OAuthOptions,
	navigator Navigator,
	log *logger.Logger,
) *AuthService {
	if log == nil {
		log = logger.Discard()
	}
	if oauth.DefaultRole == "" {
		oauth.DefaultRole = model.RolePassenger
	}
	return &AuthService{
		client:    c,
		session:   session,
		oauth:     oauth,
		navigator: navigator,
		log:       log.WithComponent("auth"),
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login posts the credentials and, on success, commits data.token to the
// session before returning. On any failure the session is left untouched.
func (a *AuthService) Login(
	ctx context.Context,
	email string,
	password string,
) (*AuthResult, error) {
	env, err := call(ctx, a.client, http.MethodPost, "/auth/login",
		credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return a.commit(ctx, env)
}

// Register creates an account. It never logs the new user in; a
// separate Login call is required.
func (a *AuthService) Register(
	ctx context.Context,
	req model.RegisterRequest,
) (*model.User, error) {
	env, err := call(ctx, a.client, http.MethodPost, "/auth/register", req)
	if err != nil {
		return nil, err
	}
	return unwrapOptional[model.User](env, "user")
}

// Me returns the current identity from data.user.
func (a *AuthService) Me(ctx context.Context) (*model.User, error) {
	return fetchOne[model.User](ctx, a.client, http.MethodGet, "/auth/me", nil, "user")
}

// Logout asks the backend to end the session and then clears the local
// token regardless of the outcome: local state always wins.
func (a *AuthService) Logout(ctx context.Context) error {
	if a.session.Token() != "" {
		if _, err := a.client.Post(ctx, "/auth/logout", nil); err != nil {
			a.log.Warn("server logout failed, clearing local session anyway",
				slog.String("error", err.Error()))
		}
	}
	return a.LogoutLocal(ctx)
}

// LogoutLocal clears the local token without calling the backend.
func (a *AuthService) LogoutLocal(ctx context.Context) error {
	a.mu.Lock()
	a.adminToken = ""
	a.mu.Unlock()
	return a.session.ClearToken(ctx)
}

// ForgotPassword requests a reset link for email.
func (a *AuthService) ForgotPassword(ctx context.Context, email string) error {
	_, err := call(ctx, a.client, http.MethodPost, "/auth/forgot-password",
		map[string]string{"email": email})
	return err
}

// ResetPassword sets a new password using the emailed reset token.
func (a *AuthService) ResetPassword(ctx context.Context, resetToken, password string) error {
	_, err := call(ctx, a.client, http.MethodPost, "/auth/reset-password",
		map[string]string{"token": resetToken, "password": password})
	return err
}

// ChangePassword changes the password of the logged-in user.
func (a *AuthService) ChangePassword(ctx context.Context, current, next string) error {
	_, err := call(ctx, a.client, http.MethodPost, "/auth/change-password",
		map[string]string{"current_password": current, "new_password": next})
	return err
}

// VerifyEmail confirms the address with the emailed code.
func (a *AuthService) VerifyEmail(ctx context.Context, code string) error {
	_, err := call(ctx, a.client, http.MethodPost, "/auth/verify-email",
		map[string]string{"code": code})
	return err
}

// GoogleLogin navigates to the Google sign-in flow.
func (a *AuthService) GoogleLogin(role string) error {
	return a.oauthRedirect(ProviderGoogle, role)
}

// AppleLogin navigates to the Apple sign-in flow.
func (a *AuthService) AppleLogin(role string) error {
	return a.oauthRedirect(ProviderApple, role)
}

// FacebookLogin navigates to the Facebook sign-in flow.
func (a *AuthService) FacebookLogin(role string) error {
	return a.oauthRedirect(ProviderFacebook, role)
}

// OAuthURL builds the provider authorization URL carrying the redirect
// URI, the role hint and a fresh state value, and remembers the state
// for the callback.
func (a *AuthService) OAuthURL(provider, role string) string {
	if role == "" {
		role = a.oauth.DefaultRole
	}

	cfg := &oauth2.Config{
		ClientID:    oauthClientID,
		RedirectURL: a.oauth.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL: a.client.BaseURL() + "/auth/" + url.PathEscape(provider),
		},
	}

	state := uuid.NewString()
	a.mu.Lock()
	a.pendingState = state
	a.mu.Unlock()

	return cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("role", role))
}

func (a *AuthService) oauthRedirect(provider, role string) error {
	if a.navigator == nil {
		return fmt.Errorf("no navigator configured for %s login", provider)
	}
	if err := a.navigator.Navigate(a.OAuthURL(provider, role)); err != nil {
		return fmt.Errorf("opening %s login: %w", provider, err)
	}
	return nil
}

// OAuthCallback exchanges the authorization code for a session token and
// commits it, with the same contract as Login. When a redirect was
// started by this process, state must match it.
func (a *AuthService) OAuthCallback(
	ctx context.Context,
	provider string,
	code string,
	state string,
) (*AuthResult, error) {
	a.mu.Lock()
	pending := a.pendingState
	a.mu.Unlock()
	if pending != "" && state != pending {
		return nil, fmt.Errorf("oauth state mismatch for %s login", provider)
	}

	env, err := call(ctx, a.client, http.MethodPost,
		"/auth/"+url.PathEscape(provider)+"/callback",
		map[string]string{"code": code, "state": state})
	if err != nil {
		return nil, err
	}

	result, err := a.commit(ctx, env)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.pendingState = ""
	a.mu.Unlock()
	return result, nil
}

// Impersonate switches the session to userID, keeping the admin token
// aside so StopImpersonation can restore it.
func (a *AuthService) Impersonate(ctx context.Context, userID string) (*AuthResult, error) {
	admin := a.session.Token()

	env, err := call(ctx, a.client, http.MethodPost,
		"/admin/users/"+url.PathEscape(userID)+"/impersonate", nil)
	if err != nil {
		return nil, err
	}

	result, err := a.commit(ctx, env)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	if a.adminToken == "" {
		a.adminToken = admin
	}
	a.mu.Unlock()

	a.log.Info("impersonation started", slog.String("user_id", userID))
	return result, nil
}

// Impersonating reports whether an admin session is set aside.
func (a *AuthService) Impersonating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.adminToken != ""
}

// StopImpersonation restores the admin token.
func (a *AuthService) StopImpersonation(ctx context.Context) error {
	a.mu.Lock()
	admin := a.adminToken
	a.adminToken = ""
	a.mu.Unlock()

	if admin == "" {
		return ErrNotImpersonating
	}
	return a.session.SetToken(ctx, admin)
}

// commit extracts data.token and stores it in the session.
func (a *AuthService) commit(ctx context.Context, env *Envelope) (*AuthResult, error) {
	var token string
	found, err := env.Field("token", &token)
	if err != nil {
		return nil, err
	}
	if !found || token == "" {
		return nil, ErrNoToken
	}

	user, err := unwrapOptional[model.User](env, "user")
	if err != nil {
		return nil, err
	}

	if err := a.session.SetToken(ctx, token); err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, User: user, Envelope: env}, nil
}
