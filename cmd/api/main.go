// main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Marga-Ghale/cardpool-backend/internal/api"
	"github.com/Marga-Ghale/cardpool-backend/internal/catalog"
	"github.com/Marga-Ghale/cardpool-backend/internal/config"
	"github.com/Marga-Ghale/cardpool-backend/internal/cron"
	"github.com/Marga-Ghale/cardpool-backend/internal/db"
	"github.com/Marga-Ghale/cardpool-backend/internal/email"
	"github.com/Marga-Ghale/cardpool-backend/internal/events"
	"github.com/Marga-Ghale/cardpool-backend/internal/metrics"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository/memory"
	"github.com/Marga-Ghale/cardpool-backend/internal/seed"
	"github.com/Marga-Ghale/cardpool-backend/internal/service"
	"github.com/Marga-Ghale/cardpool-backend/internal/socket"
	"github.com/Marga-Ghale/cardpool-backend/pkg/logging"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}
	logging.Setup()

	// ============================================
	// Load configuration
	// ============================================
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]api.HealthCheck{}

	// ============================================
	// Initialize Repositories
	// ============================================
	var repos *repository.Repositories
	if cfg.UseMemoryStore() {
		repos = memory.NewRepositories(memory.NewStore())
		slog.Warn("using in-memory store, data is lost on restart")
	} else {
		slog.Info("running database migrations", "path", cfg.MigrationsPath)
		if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}

		pg, err := db.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		checks["database"] = pg.Ping

		repos = repository.NewRepositories(pg.Pool, pg.SQL)
		slog.Info("connected to postgres")
	}

	// ============================================
	// Initialize Card Catalog (+ optional Redis cache)
	// ============================================
	var lookup catalog.Lookup = catalog.NewScryfallClient(cfg.ScryfallBaseURL, cfg.CatalogTimeout, cfg.CatalogRatePerSec)
	if cfg.RedisURL != "" {
		redisDB, err := db.NewRedisDB(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("failed to connect to redis, continuing without cache", "error", err)
		} else {
			defer redisDB.Close()
			lookup = catalog.NewCachedLookup(lookup, redisDB, cfg.CatalogCacheTTL)
			checks["cache"] = func(ctx context.Context) error { return redisDB.Client.Ping(ctx).Err() }
			slog.Info("redis catalog cache enabled", "ttl", cfg.CatalogCacheTTL)
		}
	}

	// ============================================
	// Initialize Email Service (optional)
	// ============================================
	var emailSvc *email.Service
	if cfg.SMTPHost != "" {
		emailSvc = email.NewService(&email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			UseTLS:   cfg.SMTPUseTLS,
		}, cfg.FrontendURL)
		slog.Info("email service initialized", "host", cfg.SMTPHost)
	} else {
		slog.Warn("email not configured (SMTP_HOST not set)")
	}

	// ============================================
	// Initialize Domain Events (optional)
	// ============================================
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			slog.Warn("failed to connect to rabbitmq, events disabled", "error", err)
		} else {
			publisher = amqpPublisher
			slog.Info("publishing domain events", "exchange", cfg.AMQPExchange)
		}
	}
	defer publisher.Close()

	// ============================================
	// Initialize WebSocket Hub + Metrics
	// ============================================
	hub := socket.NewHub(nil)
	go hub.Run()
	defer hub.Stop()
	broadcaster := socket.NewBroadcaster(hub)

	m := metrics.New()
	m.RegisterWSClients(hub.GetConnectedClientsCount)

	// ============================================
	// Initialize All Services
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Config:      cfg,
		Repos:       repos,
		Catalog:     lookup,
		EmailSvc:    emailSvc,
		Broadcaster: broadcaster,
		Events:      publisher,
		Metrics:     m,
	})
	hub.SetAuthorizer(services.Permission.CanJoinRoom)

	// ============================================
	// Seed Data (for development)
	// ============================================
	if !cfg.IsProduction() {
		if err := seed.SeedData(ctx, services); err != nil {
			slog.Warn("seeding failed", "error", err)
		}
	}

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	scheduler := cron.NewScheduler(services.Cascade, repos.OrderRepo, broadcaster)
	if err := scheduler.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	// ============================================
	// Start Server
	// ============================================
	router := api.NewRouter(api.RouterDeps{
		Config:   cfg,
		Services: services,
		Hub:      hub,
		Metrics:  m,
		Checks:   checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "environment", cfg.Environment, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	slog.Info("server exited")
}
