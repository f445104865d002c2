package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gwarden/gwarden/pkg/log"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the gwarden bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, errApp := NewWarden()
			if errApp != nil {
				return errApp
			}

			defer func() {
				if errClose := app.Close(ctx); errClose != nil {
					slog.Error("Error closing", log.ErrAttr(errClose))
				}
			}()

			if errInit := app.Init(ctx); errInit != nil {
				return errInit
			}

			return app.Serve(ctx)
		},
	}
}

// Serve opens the bot session and, when enabled, the metrics endpoint, then
// blocks until the context is cancelled.
func (w *Warden) Serve(ctx context.Context) error {
	if errStart := w.bot.Start(); errStart != nil {
		return errStart
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if w.conf.Metrics.Enabled {
		server := &http.Server{
			Addr:              w.conf.Metrics.ListenAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: time.Second * 5,
		}

		group.Go(func() error {
			slog.Info("Metrics endpoint listening", slog.String("addr", w.conf.Metrics.ListenAddr))

			if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
				return errServe
			}

			return nil
		})

		group.Go(func() error {
			<-groupCtx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()

			return server.Shutdown(shutdownCtx) //nolint:wrapcheck
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()

		return nil
	})

	return group.Wait() //nolint:wrapcheck
}
