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

	"github.com/Wateiyo/Nyumbanii-sub003/docs"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/config"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/database"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/http/handler"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/http/middleware"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/http/router"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/jobs"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/logger"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/mirror"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/realtime"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/search"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/service"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/storage"
	"go.uber.org/zap"
)

// @title Nyumbanii API
// @version 1.0
// @description Maintenance requests, tenant messaging and notifications for landlords, tenants and maintenance staff

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("PUBLIC_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// In staging/production with USE_AZURE_KEY_VAULT=true secrets come from Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to auto-migrate: %w", err)
		}
		log.Warn("Schema auto-migrated; use cmd/migrate outside development")
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	broker, err := realtime.NewBroker(&cfg.Realtime, log)
	if err != nil {
		return fmt.Errorf("failed to initialize realtime broker: %w", err)
	}

	var indexer search.Indexer = search.Noop{}
	if cfg.Search.MeilisearchURL != "" {
		indexer = search.NewMeili(cfg.Search.MeilisearchURL, cfg.Search.MeilisearchKey, log)
		log.Info("Search index enabled", zap.String("url", cfg.Search.MeilisearchURL))
	}

	sink, err := mirror.NewSink(ctx, &cfg.Mirror, db, log)
	if err != nil {
		return fmt.Errorf("failed to initialize legacy mirror: %w", err)
	}

	// Repositories
	maintenanceRepo := repository.NewMaintenanceRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	eventRepo := repository.NewMaintenanceEventRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	dashboardRepo := repository.NewDashboardStateRepository(db)
	teamRepo := repository.NewTeamMemberRepository(db)
	settingsRepo := repository.NewLandlordSettingsRepository(db)

	// Services
	notificationService := service.NewNotificationService(notificationRepo, dashboardRepo, broker, log)
	budgetService := service.NewBudgetService(maintenanceRepo, teamRepo, settingsRepo, cfg.Budget.MonthlyCap, log)
	maintenanceService := service.NewMaintenanceService(
		db, maintenanceRepo, quoteRepo, eventRepo,
		notificationService, budgetService, broker, indexer, fileStorage, log,
	)
	messageService := service.NewMessageService(db, messageRepo, conversationRepo, dashboardRepo, notificationService, broker, log)
	dashboardService := service.NewDashboardService(dashboardRepo, log)
	teamService := service.NewTeamService(teamRepo, log)
	mirrorService := service.NewMirrorService(eventRepo, sink, cfg.Mirror.BatchSize, cfg.Mirror.MaxAttempts, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	healthHandler := handler.NewHealthHandler(db, log,
		handler.ReadinessCheck{
			Name: "search",
			Check: func(context.Context) error {
				if cfg.Search.MeilisearchURL != "" && !indexer.Healthy() {
					return errors.New("meilisearch unreachable")
				}
				return nil
			},
		},
		handler.ReadinessCheck{
			Name: "legacyMirror",
			Check: func(ctx context.Context) error {
				pending, err := mirrorService.Pending(ctx)
				if err != nil {
					return err
				}
				if pending > int64(cfg.Mirror.BatchSize)*10 {
					return fmt.Errorf("%d events waiting for replication", pending)
				}
				return nil
			},
		},
	)

	rt := router.NewRouter(cfg, log, authMiddleware, rateLimiter, router.Handlers{
		Maintenance:  handler.NewMaintenanceHandler(maintenanceService, cfg.Storage.MaxUploadSizeMB, log),
		Messages:     handler.NewMessageHandler(messageService, log),
		Notification: handler.NewNotificationHandler(notificationService, log),
		Dashboard:    handler.NewDashboardHandler(dashboardService, budgetService, teamService, log),
		Stream:       handler.NewStreamHandler(broker, cfg.Realtime.HeartbeatDuration(), log),
		Health:       healthHandler,
	})

	// Background replication into the legacy maintenance collection
	var scheduler *jobs.Scheduler
	if sink.Name() != "none" {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterMirrorJob(
			scheduler,
			mirrorService,
			log,
			cfg.Mirror.Cron,
			cfg.Mirror.TimeoutDuration(),
			true, // drain the backlog left by a previous instance
		); err != nil {
			log.Error("Failed to register legacy mirror job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with legacy mirror job",
				zap.String("sink", sink.Name()),
				zap.String("cron_expr", cfg.Mirror.Cron),
				zap.Duration("timeout", cfg.Mirror.TimeoutDuration()),
			)
		}
	} else {
		log.Info("Legacy mirror disabled")
	}

	// WriteTimeout stays unset for the event stream; handlers bound their own work
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           rt.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeoutDuration(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// closing the broker ends open event streams so Shutdown can finish
		if err := broker.Close(); err != nil {
			log.Warn("Error closing realtime broker", zap.Error(err))
		}

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		indexer.Close()
		if err := sink.Close(ctx); err != nil {
			log.Warn("Error closing legacy mirror sink", zap.Error(err))
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
