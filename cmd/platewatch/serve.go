package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/platewatch/internal/adapters/http/api"
	"github.com/okian/platewatch/internal/adapters/http/swagger"
	"github.com/okian/platewatch/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Evaluate once and serve the report over HTTP",
		Long: `Serve evaluates the configured exports, then serves the report read-only
until SIGINT or SIGTERM:

  GET /healthz            Prometheus metrics
  GET /stats              service statistics
  GET /report             the whole report
  GET /categories         categories in rule order
  GET /categories/{id}    one category
  GET /athletes/{id}      one athlete's flags across categories`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.cfg

			ctx := cmd.Context()
			svc := newService(cfg, c.log)
			if _, err := evaluate(ctx, cfg, svc, c.log); err != nil {
				return err
			}

			mux := http.NewServeMux()
			api.NewServer(svc).Register(ctx, mux)
			swagger.Register(ctx, mux)
			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           mux,
				ReadTimeout:       readTimeout,
				WriteTimeout:      writeTimeout,
				IdleTimeout:       idleTimeout,
				ReadHeaderTimeout: readHeaderTimeout,
			}
			return run(ctx, srv, c.log)
		},
	}
	cmd.Flags().StringVar(&c.overrides.addr, "addr", "", "HTTP listen address")
	return cmd
}

// run serves until ctx is done, then shuts the server down gracefully.
func run(ctx context.Context, srv *http.Server, log logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}
