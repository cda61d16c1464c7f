package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"macro-stress-pipeline/internal/appconfig"
	"macro-stress-pipeline/internal/backfill"
	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/normalize"
	"macro-stress-pipeline/internal/sources"
	"macro-stress-pipeline/internal/store"
	"macro-stress-pipeline/pkg/logger"
	"macro-stress-pipeline/pkg/postgres"
)

var configPath string

// reducerPacing is the inter-country delay applied to every reducer,
// polite to free-tier providers pulling long history series.
const reducerPacing = 2 * time.Second

var runCmd = &cobra.Command{
	Use:   "run [fx|crypto|inflation|sovereign|reserves|normalize|all]",
	Short: "Runs one or all offline backfill reducers, or the normalization builder",
	Args:  cobra.ExactArgs(1),
	Run:   runBackfill,
}

func runBackfill(cmd *cobra.Command, args []string) {
	target := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := appconfig.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := postgres.NewDB(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	countryRepo := store.NewCountryRepository(db.DB)
	obsRepo := store.NewObservationRepository(db.DB)
	normParamRepo := store.NewNormParamRepository(db.DB)
	limiter := rate.NewLimiter(rate.Every(reducerPacing), 1)

	reducers := map[string]func(context.Context) error{
		"fx": func(ctx context.Context) error {
			r := backfill.NewFXReducer(sources.NewFXAdapter(cfg.Sources, appLogger), countryRepo, obsRepo, limiter, appLogger)
			return r.Run(ctx)
		},
		"crypto": func(ctx context.Context) error {
			r := backfill.NewCryptoReducer(sources.NewCryptoAdapter(cfg.Sources, appLogger), countryRepo, obsRepo, limiter, appLogger)
			return r.Run(ctx)
		},
		"inflation": func(ctx context.Context) error {
			r := backfill.NewInflationReducer(sources.NewInflationAdapter(cfg.Sources, appLogger), countryRepo, obsRepo, limiter, appLogger)
			return r.Run(ctx)
		},
		"sovereign": func(ctx context.Context) error {
			primary := sources.NewPrimarySovereignAdapter(cfg.Sources, appLogger)
			fallback := sources.NewFallbackSovereignAdapter(cfg.Sources, appLogger)
			dispatch := func(country entity.Country) sources.SovereignAdapter {
				if country.HasPrimaryYieldSource() {
					return primary
				}
				return fallback
			}
			r := backfill.NewSovereignReducer(dispatch, sources.NewRiskFreeAdapter(cfg.Sources, appLogger), countryRepo, obsRepo, limiter, appLogger)
			return r.Run(ctx)
		},
		"reserves": func(ctx context.Context) error {
			r := backfill.NewReservesReducer(sources.NewReservesAdapter(cfg.Sources, appLogger), countryRepo, obsRepo, limiter, appLogger)
			return r.Run(ctx)
		},
		"normalize": func(ctx context.Context) error {
			b := normalize.NewBuilder(countryRepo, obsRepo, normParamRepo, appLogger)
			return b.Run(ctx)
		},
	}

	order := []string{"fx", "crypto", "inflation", "sovereign", "reserves", "normalize"}

	run := func(name string) {
		fn, ok := reducers[name]
		if !ok {
			log.Fatalf("unknown backfill target %q", name)
		}
		appLogger.Info("backfill reducer starting", logger.Field("reducer", name))
		if err := fn(ctx); err != nil {
			appLogger.Fatal("backfill reducer failed", logger.Field("reducer", name), logger.ErrorField(err))
		}
		appLogger.Info("backfill reducer finished", logger.Field("reducer", name))
	}

	if target == "all" {
		for _, name := range order {
			run(name)
		}
		return
	}
	run(target)
}

func main() {
	rootCmd := &cobra.Command{Use: "backfill"}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(runCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing backfill CLI: %s\n", err)
		os.Exit(1)
	}
}
