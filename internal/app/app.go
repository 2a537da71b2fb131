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
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/storage/memory"
	storageredis "github.com/utafrali/storefront/internal/storage/redis"
	"github.com/utafrali/storefront/internal/store"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	events         *event.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	stopEvents     context.CancelFunc
	eventsDone     chan struct{}
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.closeClients()
		}
	}()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	// Shop state backend.
	kv, err := a.openStorage(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Catalog, loaded once.
	loader, err := a.catalogLoader(ctx, healthHandler)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(ctx, loader, logger)
	if err != nil {
		return nil, err
	}

	// Shop state, hydrated before serving.
	st := store.New(kv, store.WithLogger(logger))
	if err := st.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("hydrate shop state: %w", err)
	}
	healthHandler.RegisterCritical("shop_state", func(context.Context) error {
		if !st.Hydrated() {
			return errors.New("shop state not hydrated")
		}
		return nil
	})

	// Domain events.
	if cfg.EventsEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := a.producer.Ping(ctx); err != nil {
			logger.Warn("kafka producer ping failed, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		a.events = event.NewProducer(a.producer, cat, event.Config{
			Namespace: cfg.Namespace,
			Currency:  cfg.Currency,
			Policy:    cfg.ShippingPolicy(),
		}, logger)
		st.Subscribe(a.events.HandleChange)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	shopService := service.NewShopService(st, cat, cfg.ShippingPolicy(), cfg.Currency, logger)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	router := handler.NewRouter(shopService, healthHandler, logger, handler.RouterConfig{
		ServiceName:    serviceName,
		Namespace:      cfg.Namespace,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		CORS:           cors,
		CatalogMaxAge:  cfg.CatalogCacheMaxAge,
		RequestTimeout: cfg.RequestTimeout(),
		MutationRPS:    cfg.MutationRateLimitRPS,
		MutationBurst:  cfg.MutationRateLimitBurst,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ok = true
	return a, nil
}

func (a *App) openStorage(ctx context.Context, hh *health.Handler) (storage.KV, error) {
	switch storage.Backend(a.cfg.StorageBackend) {
	case storage.BackendMemory:
		a.logger.Warn("using in-memory shop state; state is lost on restart")
		return memory.New(), nil
	default:
		rdb, err := database.NewRedisClient(ctx, a.cfg.RedisConfig())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		a.logger.Info("connected to Redis",
			slog.String("addr", a.cfg.RedisAddr),
			slog.Int("db", a.cfg.RedisDB),
		)

		kv := storageredis.New(rdb, a.cfg.Namespace, a.cfg.StateTTL())
		hh.RegisterCritical("redis", kv.Ping)
		return kv, nil
	}
}

func (a *App) catalogLoader(ctx context.Context, hh *health.Handler) (catalog.Loader, error) {
	switch catalog.Source(a.cfg.CatalogSource) {
	case catalog.SourcePostgres:
		pgCfg := a.cfg.PostgresConfig()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		a.logger.Info("connected to PostgreSQL",
			slog.String("host", pgCfg.Host),
			slog.Int("port", pgCfg.Port),
			slog.String("database", pgCfg.DBName),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}

		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		a.logger.Info("database migrations completed")

		if a.cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(a.cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
		}
		hh.RegisterNonCritical("postgres", pool.Ping)
		return catalog.NewPostgresLoader(pool), nil

	case catalog.SourceRemote:
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("catalog"),
			a.logger,
		)
		a.logger.Info("loading catalog from product service", slog.String("url", a.cfg.CatalogURL))
		return catalog.NewRemoteLoader(client, a.cfg.CatalogURL), nil

	default:
		return catalog.StaticLoader{Path: a.cfg.CatalogFile}, nil
	}
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and the event publisher, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("namespace", a.cfg.Namespace),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// The publisher outlives ctx so events from draining requests still go out.
	eventsCtx, stopEvents := context.WithCancel(context.Background())
	a.stopEvents = stopEvents
	defer stopEvents()
	if a.events != nil {
		a.eventsDone = make(chan struct{})
		go func() {
			defer close(a.eventsDone)
			a.events.Run(eventsCtx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Event publisher (flush queued events)
// 3. Tracer (flush pending spans)
// 4. Kafka producer, Redis, PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.stopEvents != nil {
		a.stopEvents()
	}
	if a.eventsDone != nil {
		<-a.eventsDone
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeClients())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeClients() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
