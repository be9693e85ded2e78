package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/core/port"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/config"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/database"
	kafkainfra "github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/kafka"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/logger"
	redisinfra "github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/redis"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/security"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/infra/telemetry"
	postgresrepo "github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/repository/postgres"
	redisrepo "github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/repository/redis"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/transport/http/middleware"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/transport/http/routes"
	"github.com/IDSS123a/kvs-scuba-maldivi-sub001/internal/usecase"
)

type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	telemetry *telemetry.Provider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tel, err := telemetry.Attach(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	if err := database.RunMigrations(ctx, cfg.Postgres, log); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	lockoutStore := redisrepo.NewLockoutRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.LockoutPrefix,
		TTL:       cfg.Lockout.Window * 2,
	})
	sessionStore := redisrepo.NewSessionRepository(redisClient.Client(), cfg.Redis.SessionPrefix)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewLockoutRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "crew:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	accessService := usecase.NewAccessService(repos.Accounts, repos.Audit, eventPublisher, log).
		WithMintAttempts(cfg.Pin.MintAttempts)
	verifyService := usecase.NewVerifyService(repos.Accounts, lockoutStore, repos.Audit, eventPublisher, log).
		WithLockoutPolicy(cfg.Lockout.MaxFailures, cfg.Lockout.Window)
	sessionService := usecase.NewSessionService(sessionStore, lockoutStore, []byte(cfg.Session.Secret), cfg.Session.Issuer, cfg.Session.TTL, log)

	if cfg.Bootstrap.AdminEmail != "" {
		pin, err := accessService.EnsureAdmin(ctx, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail)
		if err != nil {
			pool.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		if pin != "" {
			// Printed once at first startup; the admin credential has no
			// other delivery channel.
			log.Info("bootstrap admin created",
				zap.String("email", logger.MaskEmail(cfg.Bootstrap.AdminEmail)),
				zap.String("pin", pin),
			)
		}
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Access:   accessService,
			Verify:   verifyService,
			Sessions: sessionService,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		telemetry: tel,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting crew access API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
