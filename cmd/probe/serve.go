package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Bahjat/arrestorgear/internal/httpcall"
	"github.com/Bahjat/arrestorgear/internal/platform/middleware"
	"github.com/Bahjat/arrestorgear/internal/platform/telemetry"
	"github.com/Bahjat/arrestorgear/internal/probe"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr       string
		fetchStyle bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose probing over HTTP at POST /probe and counters at GET /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			convention := httpcall.Standard
			if fetchStyle {
				convention = httpcall.Fetch
			}

			log, svc, err := setup(convention)
			if err != nil {
				return err
			}

			tel := telemetry.Setup(log)
			defer func() { _ = tel.Shutdown(context.Background()) }()

			mux := http.NewServeMux()
			probe.NewTransport(svc, log).RegisterRoutes(mux)
			tel.RegisterRoutes(mux)

			srv := &http.Server{
				Addr:              addr,
				Handler:           middleware.RequestID(middleware.Logging(log)(mux)),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("probe server listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				log.Info("shutting down probe server")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&fetchStyle, "fetch-style", false, "store failure bodies the way fetch wrappers do")
	return cmd
}
