package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rokthenats/karting-registry/internal/application/services"
	"github.com/rokthenats/karting-registry/internal/config"
	"github.com/rokthenats/karting-registry/internal/infrastructure/mailer"
	"github.com/rokthenats/karting-registry/internal/infrastructure/notifylog"
	"github.com/rokthenats/karting-registry/internal/infrastructure/persistence"
	"github.com/rokthenats/karting-registry/internal/infrastructure/persistence/migrate"
	"github.com/rokthenats/karting-registry/internal/infrastructure/persistence/postgres"
	"github.com/rokthenats/karting-registry/internal/interfaces/rest/handlers"
	"github.com/rokthenats/karting-registry/internal/interfaces/rest/middleware"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting registry service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	if err := migrate.MigrateDb(cfg.Database.ConnString()); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := postgres.NewStore(db)

	sender := mailer.NewRetryMailer(mailer.NewMailer(cfg.Mailer), cfg.Mailer)

	failedNotifications, err := notifylog.NewFileSink(cfg.Storage.FailedNotificationsPath)
	if err != nil {
		logger.Error("failed to open failed-notification log", "error", err)
		os.Exit(1)
	}

	initiationService := services.NewInitiationService(store, sender, cfg.Gateway, cfg.Racing, logger)
	notificationService := services.NewNotificationService(store, sender, cfg.Gateway, cfg.Racing, cfg.Mailer.AdminEmail, logger)
	lifecycleService := services.NewLifecycleService(store, sender, cfg.Racing, logger)
	equipmentService := services.NewEquipmentService(store, logger)

	h := handlers.NewHandlers(
		initiationService,
		notificationService,
		lifecycleService,
		equipmentService,
		failedNotifications,
		logger,
	)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux, cfg.Officials.Token)

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
