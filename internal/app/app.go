package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/saumyadesai17/maayaro-sub001/internal/carrier"
	"github.com/saumyadesai17/maayaro-sub001/internal/config"
	"github.com/saumyadesai17/maayaro-sub001/internal/event"
	"github.com/saumyadesai17/maayaro-sub001/internal/gateway"
	handler "github.com/saumyadesai17/maayaro-sub001/internal/handler/http"
	"github.com/saumyadesai17/maayaro-sub001/internal/policy"
	"github.com/saumyadesai17/maayaro-sub001/internal/repository/postgres"
	"github.com/saumyadesai17/maayaro-sub001/internal/repository/redis"
	"github.com/saumyadesai17/maayaro-sub001/internal/service"
	"github.com/saumyadesai17/maayaro-sub001/migrations"
	"github.com/saumyadesai17/maayaro-sub001/pkg/database"
	"github.com/saumyadesai17/maayaro-sub001/pkg/health"
	"github.com/saumyadesai17/maayaro-sub001/pkg/httpclient"
	pkgkafka "github.com/saumyadesai17/maayaro-sub001/pkg/kafka"
	"github.com/saumyadesai17/maayaro-sub001/pkg/tracing"
)

// cartTTL bounds how long an untouched cart survives in Redis.
const cartTTL = 7 * 24 * time.Hour

// App wires together all dependencies and runs the order engine.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "order-engine",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "order-engine")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Redis (cart store).
	redisClient, err := database.NewRedisClient(ctx, cfg.RedisConfig())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisConfig().Addr()))

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	orderRepo := postgres.NewOrderRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	shipmentRepo := postgres.NewShipmentRepository(pool)
	variantRepo := postgres.NewVariantRepository(pool)
	settingsRepo := postgres.NewSettingsRepository(pool)
	addressRepo := postgres.NewAddressRepository(pool)
	cartStore := redis.NewCartStore(redisClient, cartTTL)

	eventProducer := event.NewProducer(producer, logger)
	policyResolver := policy.NewResolver(settingsRepo, logger)

	// HTTP clients for the gateway and carrier, each behind its own breaker.
	gatewayHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("payment-gateway"),
		logger,
	)
	carrierHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("shipping-carrier"),
		logger,
	)
	gatewayClient := gateway.NewClient(cfg.Gateway, gatewayHTTP, logger)
	carrierClient := carrier.NewClientWithCache(cfg.Carrier, carrierHTTP, 30*time.Second, logger)

	orderService := service.NewOrderService(
		orderRepo, paymentRepo, variantRepo, addressRepo, cartStore,
		policyResolver, gatewayClient, service.NewOrderNumberGenerator(),
		eventProducer, cfg.ValidationMode, logger,
	)
	paymentService := service.NewPaymentService(
		paymentRepo, orderRepo, variantRepo, cartStore, gatewayClient,
		eventProducer, logger,
	)
	shipmentService := service.NewShipmentService(
		shipmentRepo, orderRepo, addressRepo, carrierClient,
		eventProducer, logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(
		orderService, paymentService, shipmentService,
		healthHandler, logger, cfg.PprofAllowedCIDRs,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
