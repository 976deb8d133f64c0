package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/repo-digest-notifier/internal/adapters/httpapi"
	"github.com/bnema/repo-digest-notifier/internal/application"
	"github.com/bnema/repo-digest-notifier/internal/config"
	"github.com/bnema/repo-digest-notifier/internal/scheduler"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Post the digest every poll interval and serve the Slack install flow",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := root.wire(cmd, config.PurposeServe)
			if err != nil {
				return err
			}
			defer app.Close()

			poller, err := app.pollService(nil, nil)
			if err != nil {
				return err
			}
			installer, err := app.installService()
			if err != nil {
				return err
			}

			listener, err := net.Listen("tcp", app.cfg.Server.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", app.cfg.Server.Addr, err)
			}

			return runServe(ctx, app, poller, installer, listener)
		},
	}
}

// runServe blocks until ctx is done or the HTTP server fails. The poll loop
// and the server share one lifetime.
func runServe(ctx context.Context, app *app, poller *application.PollService, installer httpapi.Installer, listener net.Listener) error {
	ticker, err := scheduler.NewTicker(app.cfg.Poll.Interval)
	if err != nil {
		return err
	}
	defer ticker.Stop()

	proxies, err := app.cfg.Server.ProxyNetworks()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	e := httpapi.NewServer(gctx, installer, httpapi.Options{
		RateLimit:      rate.Limit(app.cfg.Server.RateLimit),
		RateBurst:      app.cfg.Server.RateBurst,
		TrustedProxies: proxies,
		Metrics:        app.recorder.Handler(),
		Logger:         app.logger,
	})
	e.Listener = listener

	g.Go(func() error {
		app.logger.Info("http server listening", "addr", listener.Addr().String())
		if err := e.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		app.logger.Info("poll loop started",
			"interval", app.cfg.Poll.Interval,
			"run_on_start", app.cfg.Poll.RunOnStart)
		scheduler.Run(gctx, ticker.C(), func(ctx context.Context) {
			poller.RunCycle(ctx)
		}, scheduler.Options{
			Timeout:    app.cfg.Poll.CycleTimeout,
			RunOnStart: app.cfg.Poll.RunOnStart,
			Logger:     app.logger,
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	app.logger.Info("server exited")
	return nil
}
