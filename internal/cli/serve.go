package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vilapos/m/internal/api"
	"vilapos/m/internal/dashboard"
	"vilapos/m/internal/seed"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *app) error {
				if port != "" {
					a.cfg.HTTPPort = port
				}
				return runServe(ctx, a)
			})
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides HTTP_PORT)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	if a.cfg.SeedOnStart {
		if _, err := seed.Demo(ctx, a.products, a.sales, a.cfg.DefaultShop, a.clock.Now()); err != nil {
			a.log.Warn("seeding on start failed", zap.String("shop", a.cfg.DefaultShop), zap.Error(err))
		}
	}

	handler := api.New(api.Deps{
		Products:  a.products,
		Sales:     a.sales,
		Shops:     a.shops,
		Users:     a.users,
		Dashboard: dashboard.NewRefresher(a.dashboard),
		Clock:     a.clock,
		Secret:    a.cfg.Secret,
		Logger:    a.log,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Sabor da Vila POS server starting",
			zap.String("addr", srv.Addr),
			zap.String("schema", a.schema.State().String()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
