package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"macro-stress-pipeline/internal/appconfig"
	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/orchestrator"
	"macro-stress-pipeline/internal/readapi"
	"macro-stress-pipeline/internal/sources"
	"macro-stress-pipeline/internal/store"
	"macro-stress-pipeline/pkg/logger"
	"macro-stress-pipeline/pkg/postgres"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the pipeline service",
	Run:   runServe,
}

func sovereignDispatch(primary, fallback sources.SovereignAdapter) orchestrator.SovereignDispatch {
	return func(country entity.Country) sources.SovereignAdapter {
		if country.HasPrimaryYieldSource() {
			return primary
		}
		return fallback
	}
}

func runServe(cmd *cobra.Command, args []string) {
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

	appLogger.Info("Starting Pipeline Service", logger.Field("name", cfg.App.Name))

	postgresCfg := postgres.Config{
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
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	countryRepo := store.NewCountryRepository(db.DB)
	normParamRepo := store.NewNormParamRepository(db.DB)
	obsRepo := store.NewObservationRepository(db.DB)
	runLogRepo := store.NewRunLogRepository(db.DB)

	fxAdapter := sources.NewFXAdapter(cfg.Sources, appLogger)
	cryptoAdapter := sources.NewCryptoAdapter(cfg.Sources, appLogger)
	inflationAdapter := sources.NewInflationAdapter(cfg.Sources, appLogger)
	reservesAdapter := sources.NewReservesAdapter(cfg.Sources, appLogger)
	riskFreeAdapter := sources.NewRiskFreeAdapter(cfg.Sources, appLogger)
	stablecoinAdapter := sources.NewStablecoinAdapter(cfg.Sources, appLogger)
	primarySovereign := sources.NewPrimarySovereignAdapter(cfg.Sources, appLogger)
	fallbackSovereign := sources.NewFallbackSovereignAdapter(cfg.Sources, appLogger)

	orch := orchestrator.New(
		countryRepo, normParamRepo, obsRepo, runLogRepo,
		fxAdapter, cryptoAdapter, inflationAdapter,
		sovereignDispatch(primarySovereign, fallbackSovereign),
		reservesAdapter, riskFreeAdapter, stablecoinAdapter,
		appLogger,
	)

	composer := readapi.NewComposer(countryRepo, obsRepo, normParamRepo)
	publicHandler := readapi.NewHandler(composer, appLogger)
	triggerHandler := readapi.NewTriggerHandler(orch, appLogger)

	e := echo.New()
	e.HideBanner = true

	apiGroup := e.Group("/api/public")
	publicHandler.RegisterRoutes(apiGroup)
	e.GET("/healthz", readapi.Healthz)

	internalGroup := e.Group("/internal", readapi.SharedSecretAuth(cfg.Scheduler.SharedSecret))
	triggerHandler.RegisterRoutes(internalGroup)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "pipeline-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing pipeline-service CLI: %s\n", err)
		os.Exit(1)
	}
}
