package main

import (
	"context"
	"os"
	"time"

	"github.com/BearBump/DeliveryMonitor/config"
	"github.com/BearBump/DeliveryMonitor/internal/integrations/carrier"
	"github.com/BearBump/DeliveryMonitor/internal/integrations/cdek"
	"github.com/BearBump/DeliveryMonitor/internal/logger"
	"github.com/BearBump/DeliveryMonitor/internal/models"
	"github.com/BearBump/DeliveryMonitor/internal/services/monitoring"
	"github.com/BearBump/DeliveryMonitor/internal/services/syncer"
	"github.com/BearBump/DeliveryMonitor/internal/storage/pgshipments"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type cliStore interface {
	syncer.Repository
	monitoring.Repository
	CountShipments(ctx context.Context) (int, error)
}

type orderLookup interface {
	FetchShipmentByUUID(ctx context.Context, orderUUID string) (*models.ShipmentRecord, error)
}

type cliDeps struct {
	loadConfig    func(path string) (*config.Config, error)
	openStore     func(ctx context.Context, cfg *config.Config) (cliStore, func(), error)
	newCarrier    func(cfg *config.Config) carrier.Client
	newLookup     func(cfg *config.Config) orderLookup
	migrateUp     func(connString string) error
	migrateDown   func(connString string, steps int) error
	schemaVersion func(connString string) (uint, bool, error)
}

func defaultDeps() cliDeps {
	return cliDeps{
		loadConfig: config.LoadConfig,
		openStore: func(ctx context.Context, cfg *config.Config) (cliStore, func(), error) {
			st, err := pgshipments.NewWithRetry(ctx, cfg.Database.ConnString(), 10*time.Second, logger.Named("storage"))
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newCarrier: func(cfg *config.Config) carrier.Client {
			return carrier.FromConfig(cfg.CDEK, logger.Named("carrier"))
		},
		newLookup: func(cfg *config.Config) orderLookup {
			return cdek.New(cfg.CDEK.BaseURL, cfg.CDEK.ClientID, cfg.CDEK.ClientSecret,
				time.Duration(cfg.CDEK.RequestTimeoutSeconds)*time.Second,
				cdek.WithLogger(logger.Named("cdek")),
			)
		},
		migrateUp:     pgshipments.MigrateUp,
		migrateDown:   pgshipments.MigrateDown,
		schemaVersion: pgshipments.SchemaVersion,
	}
}

type cliApp struct {
	deps    cliDeps
	cfgFile string
	output  string
	cfg     *config.Config
}

func newRootCmd(d cliDeps) *cobra.Command {
	app := &cliApp{deps: d}

	root := &cobra.Command{
		Use:   "monitor-cli",
		Short: "Delivery monitor CLI",
		Long: `monitor-cli manages the CDEK delivery monitor from the terminal:
seed tracking codes, run a status sync, inspect shipments and migrate the schema.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.deps.loadConfig(app.cfgFile)
			if err != nil {
				return errors.Wrap(err, "load config")
			}
			app.cfg = cfg
			return logger.Init(cfg.App.Environment, cfg.App.LogLevel)
		},
	}

	root.PersistentFlags().StringVar(&app.cfgFile, "config", os.Getenv("configPath"), "path to the YAML config (env configPath)")
	root.PersistentFlags().StringVarP(&app.output, "output", "o", "table", "output format: table, json")

	root.AddCommand(
		newSeedCmd(app),
		newSyncCmd(app),
		newShipmentsCmd(app),
		newStatsCmd(app),
		newLookupCmd(app),
		newMigrateCmd(app),
	)
	return root
}

func (a *cliApp) withStore(ctx context.Context, fn func(st cliStore) error) error {
	st, closeFn, err := a.deps.openStore(ctx, a.cfg)
	if err != nil {
		return errors.Wrap(err, "connect to postgres")
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(st)
}

func (a *cliApp) jsonOutput() bool {
	return a.output == "json"
}
