package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/deptforge/agent-departments/internal/api/http"
	"github.com/deptforge/agent-departments/internal/api/http/handlers"
	"github.com/deptforge/agent-departments/internal/auth"
	"github.com/deptforge/agent-departments/internal/catalog"
	"github.com/deptforge/agent-departments/internal/config"
	"github.com/deptforge/agent-departments/internal/conversation"
	"github.com/deptforge/agent-departments/internal/events"
	"github.com/deptforge/agent-departments/internal/llm"
	"github.com/deptforge/agent-departments/internal/observability"
	"github.com/deptforge/agent-departments/internal/persistence"
	"github.com/deptforge/agent-departments/internal/repository"
	"github.com/deptforge/agent-departments/internal/service"
	"github.com/deptforge/agent-departments/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.Migrations(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	locker, lockStore := service.NewChatLocker(ctx, redis, cfg.Redis.LockTTL(), cfg.Redis.LockWait(), logger)

	backend, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal("failed to init model backend", zap.Error(err))
	}
	logger.Info("model backend ready",
		zap.String("provider", backend.Name()),
		zap.String("model", cfg.LLM.Model))

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	stores := repository.NewStores(pg.PoolHandle())

	authService := service.NewAuthService(*cfg, stores.Users)
	departmentService := service.NewDepartmentService(service.DepartmentDependencies{
		Catalog:          catalog.Default(),
		DepartmentRepo:   stores.Departments,
		PersonaRepo:      stores.Personas,
		ConversationRepo: stores.Conversations,
		Dispatcher:       dispatcher,
		Logger:           logger,
		SessionIdleTTL:   cfg.App.SessionIdleTTL(),
	})
	agentService := service.NewAgentService(departmentService, stores.Personas, dispatcher, logger)
	orchestrator := conversation.NewOrchestrator(backend, conversation.SettingsFromConfig(cfg.LLM), logger, metrics)
	chatService := service.NewChatService(service.ChatDependencies{
		Departments:      departmentService,
		Agents:           agentService,
		ConversationRepo: stores.Conversations,
		Responder:        orchestrator,
		Locker:           locker,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})

	notificationService := service.NewNotificationService(logger, cfg.Notification)
	notifications := worker.StartNotificationWorker(ctx, dispatcher, notificationService, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	dependencies := map[string]handlers.Pinger{"redis": nil, "postgres": nil}
	if lockStore != nil {
		dependencies["redis"] = lockStore
	}
	if pg.Enabled() {
		dependencies["postgres"] = pg
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, backend.Name(), dependencies),
		Users:          handlers.NewUsersHandler(authService),
		Departments:    handlers.NewDepartmentsHandler(departmentService),
		Agents:         handlers.NewAgentsHandler(agentService),
		Messages:       handlers.NewMessagesHandler(chatService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), stores.Users),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	notifications.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
