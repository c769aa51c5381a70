package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/securehire-auth/internal/api/http"
	"github.com/spec-kit/securehire-auth/internal/api/http/handlers"
	"github.com/spec-kit/securehire-auth/internal/auth"
	"github.com/spec-kit/securehire-auth/internal/config"
	"github.com/spec-kit/securehire-auth/internal/events"
	"github.com/spec-kit/securehire-auth/internal/observability"
	"github.com/spec-kit/securehire-auth/internal/persistence"
	"github.com/spec-kit/securehire-auth/internal/repository"
	"github.com/spec-kit/securehire-auth/internal/service"
	"github.com/spec-kit/securehire-auth/internal/worker"
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

	var principals *repository.Principals
	if pg.Enabled() {
		pool := pg.PoolHandle()
		principals = repository.NewPrincipals(
			repository.NewCandidateRepository(pool),
			repository.NewRecruiterRepository(pool),
		)
	} else {
		logger.Warn("using in-memory principal stores; data is lost on restart")
		principals = repository.NewPrincipals(
			repository.NewMemoryCandidateRepository(),
			repository.NewMemoryRecruiterRepository(),
		)
	}

	tokens, err := auth.NewTokenCodec(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to init token codec", zap.Error(err))
	}

	metrics := observability.NewMetrics(cfg.App.Name)
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Principals:    principals,
		Tokens:        tokens,
		LoginAttempts: repository.NewLoginAttemptRepository(redis.Client, cfg.App.Name+":login_failures"),
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	cookies := auth.NewCookieJar(cfg.Cookie, tokens)
	sessionFilter := auth.NewSessionFilter(auth.SessionFilterDeps{
		Tokens:     tokens,
		Resolver:   auth.NewPrincipalResolver(principals),
		Principals: principals,
		Cookies:    cookies,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:    handlers.NewAuthHandler(authService, cookies),
		Session: sessionFilter,
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
