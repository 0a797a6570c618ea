package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joltcab/console/internal/api"
	"github.com/joltcab/console/internal/config"
	"github.com/joltcab/console/internal/credential"
	"github.com/joltcab/console/internal/logger"
	"github.com/joltcab/console/internal/metrics"
	"github.com/joltcab/console/internal/realtime"
	"github.com/joltcab/console/internal/session"
	"github.com/joltcab/console/internal/store"
	appsync "github.com/joltcab/console/internal/sync"
)

// env is everything a command needs, built once per invocation from the
// resolved configuration.
type env struct {
	cfg     config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	session *session.Store
	api     *api.API
	printer printer
	out     io.Writer
	errOut  io.Writer
	in      io.Reader

	closers []func() error
}

type envOptions struct {
	// logFile sends logs to a file instead of stderr so a full-screen
	// UI is not overwritten.
	logFile bool
}

// openEnv loads config, opens the durable token backend, restores the
// session and wires the API facades.
func openEnv(cmd *cobra.Command, flags *globalFlags, opts envOptions) (*env, error) {
	p, err := newPrinter(flags.output, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath(flags))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	e := &env{
		cfg:     cfg,
		metrics: metrics.New(),
		printer: p,
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
		in:      cmd.InOrStdin(),
	}

	logCfg := logger.FromConfig(cfg.Log.Level, cfg.Log.Format)
	if flags.verbose {
		logCfg.Level = slog.LevelDebug
	}
	logCfg.Output = cmd.ErrOrStderr()
	if opts.logFile || cfg.Log.File != "" {
		logPath := cfg.Log.File
		if logPath == "" {
			logPath = filepath.Join(config.Dir(), "joltcab.log")
		}
		f, err := logger.OpenFile(logPath)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, f.Close)
		logCfg.Output = f
	}
	e.log = logger.New(logCfg).WithComponent("cli")

	durable, err := openDurable(cfg.Storage)
	if err != nil {
		e.Close()
		return nil, err
	}
	if c, ok := durable.(io.Closer); ok {
		e.closers = append(e.closers, c.Close)
	}

	e.session = session.New(durable)
	if err := e.session.Load(cmd.Context()); err != nil {
		e.Close()
		return nil, err
	}

	e.api = api.New(
		api.Options{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   time.Duration(cfg.API.TimeoutSec) * time.Second,
			RateLimit: cfg.API.RateLimitRPS,
			Burst:     cfg.API.RateBurst,
			Logger:    e.log,
			Metrics:   e.metrics,
		},
		e.session,
		api.OAuthOptions{
			RedirectURI: cfg.Auth.RedirectURI,
			DefaultRole: cfg.Auth.DefaultRole,
		},
		browser{},
	)

	e.log.Debug("environment ready",
		slog.String("base_url", cfg.API.BaseURL),
		slog.String("storage", cfg.Storage.Backend),
		slog.Bool("authenticated", e.session.Authenticated()))

	return e, nil
}

// openDurable selects the token backend named in config.
func openDurable(cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	case config.BackendSQLite:
		s, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening token database: %w", err)
		}
		return s, nil
	default:
		k, err := credential.Open(config.Dir())
		if err != nil {
			return nil, err
		}
		return k, nil
	}
}

// newRealtime builds the notification manager for this session. The
// auth frame carries the user's email when /auth/me answers. Desktop
// notifications go to stderr so piped stdout stays clean.
func (e *env) newRealtime() *realtime.Manager {
	auth := e.api.Auth
	return realtime.New(realtime.Options{
		URL:                  e.cfg.Realtime.URL,
		Disabled:             e.cfg.Realtime.Disabled,
		LocalHost:            e.cfg.Realtime.LocalHost,
		MaxReconnectAttempts: e.cfg.Realtime.MaxReconnectAttempts,
		Tokens:               e.session,
		Identity: func(ctx context.Context) (string, error) {
			u, err := auth.Me(ctx)
			if err != nil {
				return "", err
			}
			return u.Email, nil
		},
		Notifier: realtime.NewTerminalNotifier(e.errOut, e.cfg.Realtime.DesktopNotifications),
		Logger:   e.log,
		Metrics:  e.metrics,
	})
}

// newPoller builds the REST fallback feeding mgr.
func (e *env) newPoller(mgr *realtime.Manager) *appsync.Poller {
	interval := time.Duration(e.cfg.Realtime.PollIntervalSec) * time.Second
	return appsync.New(e.api.Notifications, mgr, interval, e.log)
}

// requireSession fails fast when no token is held.
func (e *env) requireSession() error {
	if !e.session.Authenticated() {
		return fmt.Errorf("not signed in, run `joltcab login` first")
	}
	return nil
}

// Close releases the token backend and the log file.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
	e.closers = nil
}

// withEnv adapts a command body that needs an env into a cobra RunE.
func withEnv(
	flags *globalFlags,
	opts envOptions,
	fn func(cmd *cobra.Command, e *env, args []string) error,
) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, flags, opts)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, e, args)
	}
}

// authed is withEnv for commands that need a signed-in session.
func authed(
	flags *globalFlags,
	fn func(cmd *cobra.Command, e *env, args []string) error,
) func(cmd *cobra.Command, args []string) error {
	return withEnv(flags, envOptions{}, func(cmd *cobra.Command, e *env, args []string) error {
		if err := e.requireSession(); err != nil {
			return err
		}
		return fn(cmd, e, args)
	})
}
