package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joltcab/console/internal/model"
	"github.com/joltcab/console/internal/realtime"
	appsync "github.com/joltcab/console/internal/sync"
)

func newWatchCommand(flags *globalFlags) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow live notifications",
		Long: `watch prints notifications as they arrive over the realtime socket.
When realtime is disabled, or the API points at a local development host,
it polls the notifications endpoint instead.`,
		Args: cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				shutdown := serveMetrics(e, metricsAddr)
				defer shutdown()
			}

			mgr := e.newRealtime()
			defer mgr.Close()

			var mu sync.Mutex
			unsub := mgr.Subscribe(func(n model.Notification) {
				mu.Lock()
				defer mu.Unlock()
				printNotification(e, n)
			})
			defer unsub()

			if mgr.Enabled() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Listening for notifications (ctrl+c to stop)...")
				err := mgr.Run(ctx)
				switch {
				case ctx.Err() != nil:
					return nil
				case errors.Is(err, realtime.ErrGaveUp):
					e.log.Warn("realtime unavailable, falling back to polling")
				default:
					return err
				}
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), "Polling for notifications (ctrl+c to stop)...")
			}

			return poll(ctx, e, e.newPoller(mgr))
		}),
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address, e.g. :9464")
	return cmd
}

// poll runs the REST fallback until ctx ends or the session expires.
func poll(ctx context.Context, e *env, p *appsync.Poller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	authErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case res := <-p.Results():
				if res.AuthError != nil {
					authErr <- errors.New(res.AuthError.Message)
					cancel()
					return
				}
			}
		}
	}()

	p.Run(ctx)

	select {
	case err := <-authErr:
		return err
	default:
		return nil
	}
}

func printNotification(e *env, n model.Notification) {
	if e.printer.format == formatTable {
		fmt.Fprintln(e.out, notificationLine(n))
		return
	}
	// One JSON document per line so the stream can be piped.
	b, err := json.Marshal(n)
	if err != nil {
		e.log.Warn("encoding notification", slog.String("error", err.Error()))
		return
	}
	fmt.Fprintln(e.out, string(b))
}

// serveMetrics exposes the registry on addr and returns its shutdown.
func serveMetrics(e *env, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	e.log.Info("serving metrics", slog.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
