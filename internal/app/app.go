package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rdGxd/todo-list/internal/auth"
	"github.com/rdGxd/todo-list/internal/config"
	"github.com/rdGxd/todo-list/internal/event"
	handler "github.com/rdGxd/todo-list/internal/handler/http"
	"github.com/rdGxd/todo-list/internal/repository"
	"github.com/rdGxd/todo-list/internal/repository/postgres"
	redisrepo "github.com/rdGxd/todo-list/internal/repository/redis"
	"github.com/rdGxd/todo-list/internal/service"
	"github.com/rdGxd/todo-list/migrations"
	"github.com/rdGxd/todo-list/pkg/database"
	"github.com/rdGxd/todo-list/pkg/health"
	pkgkafka "github.com/rdGxd/todo-list/pkg/kafka"
	"github.com/rdGxd/todo-list/pkg/middleware"
	"github.com/rdGxd/todo-list/pkg/tracing"
)

// App wires together all dependencies and runs the todo API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown tracing.Shutdown
	stopBackground context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
// Anything already opened is released when a later step fails.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	a.tracerShutdown, err = tracing.Init(ctx, cfg.TracingConfig())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a.pool, err = database.NewPostgresPool(ctx, cfg.PostgresConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, a.pool, config.ServiceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	if err := database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// The service treats a nil throttle as "lockout disabled", so it must
	// stay an untyped nil when Redis is off.
	var throttle repository.LoginThrottle
	if cfg.RedisEnabled() {
		a.redis, err = database.NewRedisClient(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		throttle = redisrepo.NewLoginThrottle(a.redis, cfg.LoginMaxFailures, cfg.LoginLockoutWindow)
		logger.Info("login throttle enabled",
			slog.String("addr", cfg.RedisConfig().Addr()),
			slog.Int("max_failures", cfg.LoginMaxFailures),
			slog.Duration("window", cfg.LoginLockoutWindow),
		)
	} else {
		logger.Warn("REDIS_HOST not set, failed-login lockout disabled")
	}

	var events service.EventPublisher = event.NopProducer{}
	if cfg.EventsEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(a.producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	hasher, err := auth.NewHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("build password hasher: %w", err)
	}
	codec, err := auth.NewTokenCodec(cfg.TokenConfig())
	if err != nil {
		return nil, fmt.Errorf("build token codec: %w", err)
	}

	// Build the dependency graph.
	accountRepo := postgres.NewAccountRepository(a.pool, database.QueryTracer{
		Threshold: cfg.SlowQuery(),
		Logger:    logger,
	})
	authService, err := service.NewAuthService(accountRepo, hasher, codec, throttle, events, logger)
	if err != nil {
		return nil, fmt.Errorf("build auth service: %w", err)
	}
	accountService := service.NewAccountService(accountRepo, hasher, events, logger).
		WithAdminEmails(cfg.AdminEmails...)
	if err := accountService.PromoteAdmins(ctx); err != nil {
		return nil, fmt.Errorf("promote admin accounts: %w", err)
	}
	gate := auth.NewGate(codec, accountRepo, handler.RoutePolicies(), logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})
	if a.redis != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	bgCtx, stop := context.WithCancel(context.Background())
	a.stopBackground = stop

	router := handler.NewRouter(bgCtx, authService, accountService, gate, healthHandler, logger, handler.RouterConfig{
		ServiceName: config.ServiceName,
		CORS:        middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins),
		RateLimit:   cfg.RateLimitConfig(),
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush spans of the drained requests)
// 3. Kafka producer, Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error

	if a.stopBackground != nil {
		a.stopBackground()
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}
