package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/joltcab/console/internal/api"
	"github.com/joltcab/console/internal/model"
)

func newLoginCommand(flags *globalFlags) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, envOptions{}, func(cmd *cobra.Command, e *env, _ []string) error {
			p := newPrompter(e.in, cmd.ErrOrStderr())
			addr, err := p.valueOr(email, "Email", false)
			if err != nil {
				return err
			}
			pw, err := p.valueOr(password, "Password", true)
			if err != nil {
				return err
			}

			res, err := e.api.Auth.Login(cmd.Context(), addr, pw)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			return printAuthResult(e, res, addr)
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	return cmd
}

func newLogoutCommand(flags *globalFlags) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, envOptions{}, func(cmd *cobra.Command, e *env, _ []string) error {
			var err error
			if local {
				err = e.api.Auth.LogoutLocal(cmd.Context())
			} else {
				err = e.api.Auth.Logout(cmd.Context())
			}
			if err != nil {
				return err
			}
			e.printer.message("Signed out.")
			return nil
		}),
	}

	cmd.Flags().BoolVar(&local, "local", false, "only forget the local token")
	return cmd
}

func newMeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			u, err := e.api.Auth.Me(cmd.Context())
			if err != nil {
				return err
			}
			return e.printer.print(u, func() string { return userTable(u) })
		}),
	}
}

func newRegisterCommand(flags *globalFlags) *cobra.Command {
	var req model.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (does not sign in)",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, envOptions{}, func(cmd *cobra.Command, e *env, _ []string) error {
			p := newPrompter(e.in, cmd.ErrOrStderr())
			var err error
			if req.FullName, err = p.valueOr(req.FullName, "Full name", false); err != nil {
				return err
			}
			if req.Email, err = p.valueOr(req.Email, "Email", false); err != nil {
				return err
			}
			if req.Password, err = p.valueOr(req.Password, "Password", true); err != nil {
				return err
			}
			if req.Role == "" {
				req.Role = e.cfg.Auth.DefaultRole
			}

			u, err := e.api.Auth.Register(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			if u == nil {
				e.printer.message("Account created. Run `joltcab login` to sign in.")
				return nil
			}
			if err := e.printer.print(u, func() string { return userTable(u) }); err != nil {
				return err
			}
			e.printer.message("Account created. Run `joltcab login` to sign in.")
			return nil
		}),
	}

	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (prompted when empty)")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&req.Role, "role", "", "account role (passenger, driver, ...)")
	return cmd
}

func newOAuthCommand(flags *globalFlags) *cobra.Command {
	var (
		role      string
		code      string
		state     string
		noBrowser bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:       "oauth <google|apple|facebook>",
		Short:     "Sign in through an OAuth provider",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{api.ProviderGoogle, api.ProviderApple, api.ProviderFacebook},
		RunE: withEnv(flags, envOptions{}, func(cmd *cobra.Command, e *env, args []string) error {
			provider := args[0]
			switch provider {
			case api.ProviderGoogle, api.ProviderApple, api.ProviderFacebook:
			default:
				return fmt.Errorf("unknown provider %q", provider)
			}

			// Completing a redirect that was started elsewhere.
			if code != "" {
				res, err := e.api.Auth.OAuthCallback(cmd.Context(), provider, code, state)
				if err != nil {
					return fmt.Errorf("%s login failed: %w", provider, err)
				}
				return printAuthResult(e, res, "")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			cb, err := listenForCallback(e.cfg.Auth.RedirectURI)
			if err != nil {
				return err
			}
			defer cb.Close()

			if noBrowser {
				fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL to continue:\n\n  %s\n\n",
					e.api.Auth.OAuthURL(provider, role))
			} else if err := startProvider(e.api.Auth, provider, role); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Waiting for the provider to redirect back...")

			got, err := cb.Wait(ctx)
			if err != nil {
				return err
			}
			res, err := e.api.Auth.OAuthCallback(ctx, provider, got.code, got.state)
			if err != nil {
				return fmt.Errorf("%s login failed: %w", provider, err)
			}
			return printAuthResult(e, res, "")
		}),
	}

	cmd.Flags().StringVar(&role, "role", "", "role hint for new accounts (default from config)")
	cmd.Flags().StringVar(&code, "code", "", "authorization code to exchange directly")
	cmd.Flags().StringVar(&state, "state", "", "state value returned with --code")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "print the URL instead of opening a browser")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the redirect")
	return cmd
}

func startProvider(auth *api.AuthService, provider, role string) error {
	switch provider {
	case api.ProviderApple:
		return auth.AppleLogin(role)
	case api.ProviderFacebook:
		return auth.FacebookLogin(role)
	default:
		return auth.GoogleLogin(role)
	}
}

func newPasswordCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Password and email verification flows",
	}

	forgot := &cobra.Command{
		Use:   "forgot <email>",
		Short: "Request a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(flags, envOptions{}, func(cmd *cobra.Command, e *env, args []string) error {
			if err := e.api.Auth.ForgotPassword(cmd.Context(), args[0]); err != nil {
				return err
			}
			e.printer.message("If the account exists, a reset link is on its way.")
			return nil
		}),
	}

	var resetToken string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password using a reset token",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, envOptions{}, func(cmd *cobra.Command, e *env, _ []string) error {
			p := newPrompter(e.in, cmd.ErrOrStderr())
			token, err := p.valueOr(resetToken, "Reset token", false)
			if err != nil {
				return err
			}
			password, err := p.secret("New password")
			if err != nil {
				return err
			}
			if err := e.api.Auth.ResetPassword(cmd.Context(), token, password); err != nil {
				return err
			}
			e.printer.message("Password updated.")
			return nil
		}),
	}
	reset.Flags().StringVar(&resetToken, "token", "", "reset token from the email")

	change := &cobra.Command{
		Use:   "change",
		Short: "Change the password of the signed-in account",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			p := newPrompter(e.in, cmd.ErrOrStderr())
			current, err := p.secret("Current password")
			if err != nil {
				return err
			}
			next, err := p.secret("New password")
			if err != nil {
				return err
			}
			if err := e.api.Auth.ChangePassword(cmd.Context(), current, next); err != nil {
				return err
			}
			e.printer.message("Password changed.")
			return nil
		}),
	}

	verify := &cobra.Command{
		Use:   "verify <code>",
		Short: "Confirm the account email with a verification code",
		Args:  cobra.ExactArgs(1),
		RunE: authed(flags, func(cmd *cobra.Command, e *env, args []string) error {
			if err := e.api.Auth.VerifyEmail(cmd.Context(), args[0]); err != nil {
				return err
			}
			e.printer.message("Email verified.")
			return nil
		}),
	}

	cmd.AddCommand(forgot, reset, change, verify)
	return cmd
}

func printAuthResult(e *env, res *api.AuthResult, fallbackEmail string) error {
	if e.printer.format != formatTable {
		if res.User == nil {
			return e.printer.print(map[string]string{"email": fallbackEmail}, nil)
		}
		return e.printer.print(res.User, nil)
	}
	if res.User == nil {
		e.printer.message("Signed in as %s.", fallbackEmail)
		return nil
	}
	e.printer.message("Signed in as %s (%s).", res.User.Email, res.User.Role)
	return nil
}

type callbackResult struct {
	code  string
	state string
}

// callbackServer is a one-shot HTTP listener on the loopback redirect URI.
type callbackServer struct {
	srv    *http.Server
	result chan callbackResult
	errs   chan error
}

func listenForCallback(redirectURI string) (*callbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid auth.redirect_uri %q", redirectURI)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("auth.redirect_uri must be a loopback http URL to sign in from the terminal, got %q", redirectURI)
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("listening for oauth redirect on %s: %w", u.Host, err)
	}

	cs := &callbackServer{
		result: make(chan callbackResult, 1),
		errs:   make(chan error, 1),
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if msg := q.Get("error"); msg != "" {
			http.Error(w, "Sign-in failed: "+msg, http.StatusBadRequest)
			cs.fail(fmt.Errorf("provider returned error: %s", msg))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Missing authorization code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Signed in to JoltCab. You can close this window.")
		select {
		case cs.result <- callbackResult{code: code, state: q.Get("state")}:
		default:
		}
	})

	cs.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := cs.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cs.fail(err)
		}
	}()
	return cs, nil
}

func (cs *callbackServer) fail(err error) {
	select {
	case cs.errs <- err:
	default:
	}
}

// Wait blocks until the redirect arrives, the listener fails or ctx ends.
func (cs *callbackServer) Wait(ctx context.Context) (callbackResult, error) {
	select {
	case res := <-cs.result:
		return res, nil
	case err := <-cs.errs:
		return callbackResult{}, err
	case <-ctx.Done():
		return callbackResult{}, fmt.Errorf("waiting for oauth redirect: %w", ctx.Err())
	}
}

// Close stops the listener.
func (cs *callbackServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return cs.srv.Shutdown(ctx)
}
