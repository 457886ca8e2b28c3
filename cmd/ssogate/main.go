package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/platinummonkey/ssogate/pkg/config"
	"github.com/platinummonkey/ssogate/pkg/credstore"
	"github.com/platinummonkey/ssogate/pkg/httputil"
	"github.com/platinummonkey/ssogate/pkg/observability"
	"github.com/platinummonkey/ssogate/pkg/orgs"
	"github.com/platinummonkey/ssogate/pkg/ratelimit"
	"github.com/platinummonkey/ssogate/pkg/routing"
	"github.com/platinummonkey/ssogate/pkg/sso"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ssogate: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", "ssogate").
		WithField("version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("ssogate exited with error")
		os.Exit(1)
	}
	logger.Info("ssogate stopped")
}

// directorySet is the organization directory plus the optional capabilities
// of its backend
type directorySet struct {
	backend string
	lookup  orgs.Directory
	lister  orgs.Lister
	checker orgs.IntegrityChecker
	file    *orgs.FileDirectory
	db      *sql.DB
}

func (d *directorySet) health() observability.Directory {
	health := observability.Directory{Backend: d.backend, DB: d.db}
	if d.file != nil {
		health.Check = d.file.Health
	}
	return health
}

func openDirectory(ctx context.Context, cfg config.DirectoryConfig, logger *observability.Logger, metrics *observability.Metrics) (*directorySet, error) {
	switch cfg.Type {
	case config.DirectoryFile:
		dir, err := orgs.NewFileDirectory(cfg.FilePath, logger, metrics)
		if err != nil {
			return nil, err
		}
		return &directorySet{backend: config.DirectoryFile, lookup: dir, lister: dir, checker: dir, file: dir}, nil

	case config.DirectoryPostgres, config.DirectorySQLite:
		driver := orgs.DriverPostgres
		if cfg.Type == config.DirectorySQLite {
			driver = orgs.DriverSQLite
		}

		db, err := sql.Open(driver, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s directory: %w", cfg.Type, err)
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to %s directory: %w", cfg.Type, err)
		}
		if cfg.AutoMigrate {
			if err := orgs.Migrate(ctx, db, driver); err != nil {
				db.Close()
				return nil, err
			}
		}

		dir := orgs.NewSQLDirectory(db)
		return &directorySet{backend: cfg.Type, lookup: dir, lister: dir, checker: dir, db: db}, nil

	default:
		return nil, fmt.Errorf("unsupported directory type: %s", cfg.Type)
	}
}

func openRedis(ctx context.Context, redisURL string, logger *observability.Logger) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// Redis is only a cache tier; lookups fall through while it is down
		logger.WithError(err).Warn("Redis unreachable at startup, continuing without shared cache hits")
	}
	return client, nil
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	shutdown := observability.NewShutdownManager(logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdown.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Shutdown completed with errors")
		}
	}()

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	shutdown.Register("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	dirs, err := openDirectory(ctx, cfg.Directory, logger, metrics)
	if err != nil {
		return err
	}
	if dirs.db != nil {
		shutdown.Register("directory-db", func(context.Context) error { return dirs.db.Close() })
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = openRedis(ctx, cfg.Cache.RedisURL, logger)
		if err != nil {
			return err
		}
		if redisClient != nil {
			shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
		}
	}

	directory := orgs.Instrument(dirs.lookup, dirs.backend, metrics)
	if cfg.Cache.Enabled {
		directory = orgs.NewCachedDirectory(directory, cfg.Cache.DirectoryCache(), redisClient, logger, metrics)
	}

	store, err := credstore.NewClient(credstore.Config{
		BaseURL:     cfg.CredentialStore.URL,
		APIKey:      cfg.CredentialStore.APIKey,
		AccessToken: cfg.CredentialStore.AccessToken,
	}, metrics)
	if err != nil {
		return err
	}

	controller := routing.NewController(directory, store, logger, metrics, cfg.Routing.Options())
	handlers := sso.NewHandlers(controller, httputil.NewEmitter(logger), dirs.lister, logger)

	var memoryLimiter *ratelimit.MemoryLimiter
	if cfg.RateLimit.Enabled {
		limits, err := cfg.RateLimit.Limits()
		if err != nil {
			return err
		}
		var limiter ratelimit.Limiter
		if redisClient != nil {
			limiter = ratelimit.NewRedisLimiter(redisClient, limits, "")
		} else {
			memoryLimiter = ratelimit.NewMemoryLimiter(limits)
			limiter = memoryLimiter
		}
		handlers.WithRateLimit(ratelimit.Middleware(limiter, limits, logger, metrics))
	}

	router := mux.NewRouter()
	router.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		httputil.MetricsMiddleware(metrics),
	)
	handlers.RegisterRoutes(router)

	appServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(router, "ssogate"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(dirs.health(), redisClient, version))
	healthMux.Handle("/metrics", observability.Handler(registry))
	healthServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:     httputil.Chain(httputil.RequestIDMiddleware, httputil.RecoveryMiddleware(logger))(healthMux),
		ReadTimeout: 5 * time.Second,
	}

	scheduler := cron.New()
	if cfg.Directory.AuditSchedule != "" {
		auditor := orgs.NewAuditor(dirs.checker, logger, metrics, 0)
		if _, err := auditor.Schedule(ctx, scheduler, cfg.Directory.AuditSchedule); err != nil {
			return err
		}
		if _, err := auditor.Run(ctx); err != nil {
			logger.WithError(err).Warn("Initial duplicate domain audit failed")
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("Starting ssogate on %s", appServer.Addr)
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Infof("Starting health server on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	if dirs.file != nil && cfg.Directory.Watch {
		g.Go(func() error {
			defer observability.RecoverPanic(logger, "directory watcher")
			return dirs.file.Watch(gctx)
		})
	}

	if memoryLimiter != nil {
		g.Go(func() error {
			defer observability.RecoverPanic(logger, "rate limiter cleanup")
			return memoryLimiter.Run(gctx)
		})
	}

	scheduler.Start()

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")

		stopped := scheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := appServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("app server shutdown: %w", err))
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("health server shutdown: %w", err))
		}

		select {
		case <-stopped.Done():
		case <-shutdownCtx.Done():
			logger.Warn("Audit job still running at shutdown")
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
