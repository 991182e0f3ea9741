package cli

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vilapos/m/internal/clock"
	"vilapos/m/internal/config"
	"vilapos/m/internal/dashboard"
	"vilapos/m/internal/database"
	"vilapos/m/internal/logging"
	"vilapos/m/internal/migrations"
	"vilapos/m/internal/repository"
)

// app is the storage stack shared by every command.
type app struct {
	cfg       config.Config
	log       *zap.Logger
	db        *sqlx.DB
	schema    *migrations.Manager
	clock     clock.Clock
	products  *repository.ProductRepository
	sales     *repository.SaleRepository
	shops     *repository.ShopRepository
	users     *repository.UserRepository
	dashboard *dashboard.Service
}

// openApp loads the configuration and opens the database. The schema is
// left untouched until prepare is called.
func openApp(opts *RootOptions) (*app, error) {
	cfg := config.Load()
	if opts.DSN != "" {
		cfg.DatabaseDSN = opts.DSN
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	c := clock.System{Location: cfg.Location()}
	schema := migrations.NewManager(db, logger).WithClock(c)
	return &app{
		cfg:       cfg,
		log:       logger,
		db:        db,
		schema:    schema,
		clock:     c,
		products:  repository.NewProductRepository(db, schema, c, logger),
		sales:     repository.NewSaleRepository(db, schema, c, logger),
		shops:     repository.NewShopRepository(db, schema, c, logger),
		users:     repository.NewUserRepository(db, schema, c, logger),
		dashboard: dashboard.NewService(db, schema, c, logger),
	}, nil
}

// prepare brings the schema up to date.
func (a *app) prepare(ctx context.Context) error {
	if err := a.schema.EnsureReady(ctx); err != nil {
		return fmt.Errorf("prepare schema: %w", err)
	}
	return nil
}

func (a *app) Close() {
	_ = a.log.Sync()
	if err := a.db.Close(); err != nil {
		a.log.Warn("close database", zap.Error(err))
	}
}

// shopOrDefault falls back to the configured default shop.
func (a *app) shopOrDefault(shop string) string {
	if shop != "" {
		return shop
	}
	return a.cfg.DefaultShop
}

// withApp opens the stack for one command run and closes it afterwards.
func withApp(cmd *cobra.Command, opts *RootOptions, prepare bool, run func(ctx context.Context, a *app) error) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if prepare {
		if err := a.prepare(ctx); err != nil {
			return err
		}
	}
	return run(ctx, a)
}
