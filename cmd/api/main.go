package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/incident-service/internal/api/http"
	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/audit"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/billing"
	"github.com/spec-kit/incident-service/internal/cache"
	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/identity"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/persistence"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/service"
	"github.com/spec-kit/incident-service/internal/trackingcode"
)

// application holds every long-lived client. It is built once in main and
// handed to the components that need it.
type application struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *observability.Metrics
	primary   *persistence.Postgres
	replica   *persistence.Postgres
	redis     *persistence.Redis
	publisher events.Publisher
	closers   []io.Closer
}

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

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer app.close()

	server := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(server, logger, app.metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(server, app.routes())

	go func() {
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	primary, err := persistence.NewPostgres(ctx, "primary", cfg.Primary, logger)
	if err != nil {
		return nil, err
	}
	app.primary = primary

	app.replica = primary
	if cfg.Replica.DSN != "" {
		replica, err := persistence.NewPostgres(ctx, "replica", cfg.Replica, logger)
		if err != nil {
			app.close()
			return nil, err
		}
		app.replica = replica
	} else {
		logger.Warn("POSTGRES_REPLICA_DSN not set, reads use the primary")
	}

	if cfg.Primary.RunMigrations {
		if err := persistence.EnsureSchema(ctx, app.primary.PoolHandle(), app.replica.PoolHandle(), logger); err != nil {
			app.close()
			return nil, err
		}
	}

	app.redis = persistence.NewRedis(ctx, cfg.Redis, logger)

	if cfg.PubSub.Disabled {
		logger.Info("event publishing disabled")
		app.publisher = events.DisabledPublisher{}
	} else {
		pubsub, err := events.NewPubSubPublisher(ctx, cfg.PubSub)
		if err != nil {
			app.close()
			return nil, err
		}
		app.closers = append(app.closers, pubsub)
		app.publisher = events.NewLoggingPublisher(pubsub, logger.Named("events"))
	}

	return app, nil
}

func (a *application) routes() httptransport.RouteConfig {
	primaryPool := a.primary.PoolHandle()
	replicaPool := a.replica.PoolHandle()
	codes := trackingcode.NewGenerator()

	var verifier identity.Verifier = identity.NewHTTPVerifier(a.cfg.Identity)
	if ttl := a.cfg.Identity.CacheTTL(); ttl > 0 {
		caching := identity.NewCachingVerifier(verifier, ttl)
		a.closers = append(a.closers, stopper(caching.Stop))
		verifier = caching
	}

	location, _ := a.cfg.App.Location()
	incidents := service.NewIncidentService(service.IncidentDependencies{
		Primary:   repository.NewIncidentRepository(primaryPool, codes),
		Replica:   repository.NewIncidentRepository(replicaPool, codes),
		Cache:     cache.NewIncidentCache(cache.NewRedisBackend(a.redis.Client), a.metrics),
		Publisher: a.publisher,
		Topics:    a.cfg.PubSub.Topics(),
		Audit: audit.NewRecorder(
			repository.NewIncidentLogRepository(primaryPool),
			repository.NewIncidentLogRepository(replicaPool),
		),
		Identity: verifier,
		Billing:  billing.NewHTTPRegistrar(a.cfg.Billing),
		Logger:   a.logger.Named("incidents"),
		Location: location,
	})
	problems := service.NewCommonProblemService(service.CommonProblemDependencies{
		Primary: repository.NewCommonProblemRepository(primaryPool),
		Replica: repository.NewCommonProblemRepository(replicaPool),
		Logger:  a.logger.Named("common_problems"),
	})

	deps := map[string]handlers.Pinger{"primary": a.primary, "redis": a.redis}
	if a.replica != a.primary {
		deps["replica"] = a.replica
	}

	return httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(a.cfg.App.Name, a.cfg.App.Version, deps, a.metrics),
		Incidents:      handlers.NewIncidentsHandler(incidents),
		CommonProblems: handlers.NewCommonProblemsHandler(problems),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTLMinutes)),
	}
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
	a.redis.Close()
	if a.replica != a.primary {
		a.replica.Close()
	}
	a.primary.Close()
}

type stopper func()

func (s stopper) Close() error {
	s()
	return nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
