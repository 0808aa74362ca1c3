// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/cache"
	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/database"
	"github.com/javajoker/insurance-backend/internal/event"
	"github.com/javajoker/insurance-backend/internal/i18n"
	"github.com/javajoker/insurance-backend/internal/jobs"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/repository/memstore"
	"github.com/javajoker/insurance-backend/internal/router"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	configureLogging(cfg)

	utils.SetJWTSecret(cfg.JWT.SecretKey)
	utils.SetExposeErrorDetails(!cfg.IsProduction())
	if err := utils.InitIDGenerator(cfg.NodeID); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize id generator")
	}

	// Initialize i18n
	if err := i18n.Initialize(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	store, closeStore := openStore(cfg)
	defer closeStore()

	idempotency := openIdempotencyStore(cfg)

	publisher := openPublisher(cfg)
	defer publisher.Close()

	storage, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}

	ledger := services.NewLedgerService(store)
	svc := router.Services{
		Auth:             services.NewAuthService(store, cfg.JWT),
		Policies:         services.NewPolicyService(store),
		CustomerPolicies: services.NewCustomerPolicyService(store, ledger, publisher),
		Premiums: services.NewPremiumService(
			store,
			ledger,
			services.NewMockGateway(cfg.Payment.Provider, cfg.Payment.Gateway),
			idempotency,
			publisher,
			cfg.Payment,
		),
		Claims: services.NewClaimService(store, ledger, storage, publisher),
		Ledger: ledger,
		Users:  services.NewUserService(store),
		Admin:  services.NewAdminService(store),
	}

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	if err := svc.Auth.EnsureAdmin(bootCtx, cfg.Admin); err != nil {
		logrus.WithError(err).Fatal("Failed to bootstrap admin account")
	}
	cancelBoot()

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler, err = jobs.NewScheduler(cfg.Jobs, svc.CustomerPolicies, svc.Claims)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to schedule maintenance jobs")
		}
		scheduler.Start()
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(svc, cfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(ctx)
	}

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func configureLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.DebugLevel)
}

func openStore(cfg *config.Config) (repository.Store, func()) {
	if cfg.Database.Driver == "memory" {
		logrus.Warn("Using the in-memory store; data is lost on restart")
		return memstore.New(), func() {}
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	return repository.NewStore(db), func() { database.Close(db) }
}

func openIdempotencyStore(cfg *config.Config) cache.IdempotencyStore {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryStore()
	}

	client, err := cache.NewRedisClient(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logrus.WithError(err).Warn("Redis unavailable, falling back to in-process idempotency keys")
		return cache.NewMemoryStore()
	}
	return cache.NewRedisStore(client)
}

func openPublisher(cfg *config.Config) event.Publisher {
	if cfg.RabbitMQ.URL == "" {
		return event.NewLogPublisher()
	}

	publisher, err := event.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		logrus.WithError(err).Warn("RabbitMQ unavailable, events will only be logged")
		return event.NewLogPublisher()
	}
	return publisher
}
