package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nguyenduc/fintrack/internal/breaker"
	"github.com/nguyenduc/fintrack/internal/clients/stockapi"
	"github.com/nguyenduc/fintrack/internal/config"
	"github.com/nguyenduc/fintrack/internal/database"
	"github.com/nguyenduc/fintrack/internal/events"
	"github.com/nguyenduc/fintrack/internal/locking"
	"github.com/nguyenduc/fintrack/internal/modules/investment"
	"github.com/nguyenduc/fintrack/internal/scheduler"
	"github.com/nguyenduc/fintrack/internal/server"
	"github.com/nguyenduc/fintrack/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting fintrack")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Core services
	hub := server.NewHub(log)
	notifier := events.NewManager(hub, log)
	repo := investment.NewRepository(db.Conn(), log)
	service := investment.NewService(repo, notifier, log)

	// Price source plumbing
	priceClient := stockapi.NewClient(cfg.StockAPIURL, cfg.FetchTimeout, log)
	priceBreaker := breaker.New(
		breaker.WithThreshold(cfg.BreakerThreshold),
		breaker.WithCooldown(cfg.BreakerCooldown),
	)
	locks := locking.NewManager()

	// Background jobs
	sched := scheduler.New(log)

	priceSync := scheduler.NewPriceSyncJob(scheduler.PriceSyncConfig{
		Log:            log,
		LockManager:    locks,
		Service:        service,
		Source:         priceClient,
		Breaker:        priceBreaker,
		ProbeSymbol:    cfg.HealthProbeSymbol,
		FetchTimeout:   cfg.FetchTimeout,
		ProbeTimeout:   cfg.ProbeTimeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
	})
	if err := sched.AddJob(cfg.PriceSyncSchedule, priceSync); err != nil {
		log.Fatal().Err(err).Msg("Failed to register price sync job")
	}

	interest := scheduler.NewSavingsInterestJob(locks, service, log)
	if err := sched.AddJob(cfg.InterestSchedule, interest); err != nil {
		log.Fatal().Err(err).Msg("Failed to register interest accrual job")
	}

	healthCheck := scheduler.NewHealthCheckJob(db, locks, log)
	if err := sched.AddJob("0 0 */6 * * *", healthCheck); err != nil {
		log.Fatal().Err(err).Msg("Failed to register health check job")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:              cfg.Port,
		Log:               log,
		DB:                db,
		DevMode:           cfg.DevMode,
		InvestmentHandler: investment.NewHandler(service, log),
		Hub:               hub,
		Breaker:           priceBreaker,
		Scheduler:         sched,
		Jobs:              []scheduler.Job{priceSync, interest, healthCheck},
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
