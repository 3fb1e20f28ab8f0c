package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/approval-service/internal/api/http"
	"github.com/spec-kit/approval-service/internal/api/http/handlers"
	"github.com/spec-kit/approval-service/internal/auth"
	"github.com/spec-kit/approval-service/internal/classifier"
	"github.com/spec-kit/approval-service/internal/config"
	"github.com/spec-kit/approval-service/internal/events"
	"github.com/spec-kit/approval-service/internal/lock"
	"github.com/spec-kit/approval-service/internal/notification"
	"github.com/spec-kit/approval-service/internal/observability"
	"github.com/spec-kit/approval-service/internal/persistence"
	"github.com/spec-kit/approval-service/internal/repository"
	"github.com/spec-kit/approval-service/internal/service"
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

	var rdb *persistence.Redis
	var locks lock.Keyed = lock.NewKeyedMutex()
	if cfg.Redis.Enabled {
		rdb = persistence.NewRedis(cfg.Redis, logger)
		defer rdb.Close()
		locks = lock.NewRedisKeyed(rdb.Client, cfg.App.Name+":lock:")
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	approvalRepo := repository.NewApprovalRepository(pool)
	memberRepo := repository.NewTeamMemberRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	codec := auth.NewApprovalTokenCodec(cfg.Approval.TokenSecret)

	textClassifier := classifier.New(classifier.Config{
		Suggester: classifier.NewSuggester(cfg.Classifier),
		Logger:    logger,
	})

	mailer := notification.NewMailer(cfg.Mail, logger)
	notifications := service.NewNotificationService(mailer, metrics, cfg.App.PublicBaseURL, logger)
	notifications.RegisterHandlers(dispatcher)

	assignmentService := service.NewAssignmentService(ticketRepo, memberRepo)
	approvalService := service.NewApprovalService(cfg.Approval, service.ApprovalDependencies{
		TicketRepo:   ticketRepo,
		ApprovalRepo: approvalRepo,
		CategoryRepo: categoryRepo,
		UserRepo:     userRepo,
		HistoryRepo:  historyRepo,
		Assignment:   assignmentService,
		Dispatcher:   dispatcher,
		Codec:        codec,
		Locks:        locks,
		Logger:       logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CategoryRepo: categoryRepo,
		HistoryRepo:  historyRepo,
		Classifier:   textClassifier,
		Approvals:    approvalService,
		Dispatcher:   dispatcher,
		Locks:        locks,
		Logger:       logger,
	})
	authService := service.NewAuthService(userRepo, tokens, cfg.Auth, logger)
	categoryService := service.NewCategoryService(categoryRepo, logger)
	memberService := service.NewTeamMemberService(memberRepo, categoryRepo, logger)

	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Users:          handlers.NewUsersHandler(authService),
		Categories:     handlers.NewCategoriesHandler(categoryService),
		TeamMembers:    handlers.NewTeamMembersHandler(memberService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Approvals:      handlers.NewApprovalsHandler(approvalService),
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
