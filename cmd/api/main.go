package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/broadcast"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store := repository.NewStore(pg.PoolHandle())
	repos := store.Repositories()

	dispatcher := events.NewInMemoryDispatcher()
	notifier := service.NewNotificationService(dispatcher, logger)
	notificationWorker := worker.NewNotificationWorker(dispatcher, logger, cfg.Notification)
	notificationWorker.Start()

	broadcaster := broadcast.NewRedisBroadcaster(redis.Client, cfg.Broadcast.ChannelPrefix, logger)

	collabTracker := service.NewCollaborationTracker(service.CollaborationTrackerDependencies{
		Store:       store,
		Repos:       repos,
		Notifier:    notifier,
		Broadcaster: broadcaster,
		Logger:      logger,
	})
	assignmentEngine := service.NewAssignmentEngine(service.AssignmentEngineDependencies{
		Store:    store,
		Repos:    repos,
		Notifier: notifier,
		Logger:   logger,
	})
	assignmentManager := service.NewAssignmentManager(service.AssignmentManagerDependencies{
		Store:    store,
		Repos:    repos,
		Notifier: notifier,
		Collab:   collabTracker,
		Logger:   logger,
	})
	responsibleManager := service.NewResponsibleManager(store, collabTracker, logger)
	ticketService := service.NewTicketService(service.TicketServiceDependencies{
		Store:    store,
		Repos:    repos,
		Engine:   assignmentEngine,
		Manager:  assignmentManager,
		Collab:   collabTracker,
		Notifier: notifier,
		Logger:   logger,
	})

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, repos.Users)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(repos.Users, tokenManager, cfg.Auth.BcryptCost),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Assignments:    handlers.NewAssignmentsHandler(assignmentEngine, assignmentManager, responsibleManager, ticketService),
		Collaboration:  handlers.NewCollaborationHandler(collabTracker),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
