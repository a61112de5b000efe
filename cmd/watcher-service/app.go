package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ecrwatch/internal/api"
	"ecrwatch/internal/audit"
	"ecrwatch/internal/config"
	"ecrwatch/internal/constants"
	"ecrwatch/internal/logger"
	"ecrwatch/internal/matcher"
	"ecrwatch/internal/watcher"
	"ecrwatch/pkg/bootstrap"
	"ecrwatch/pkg/health"
	"ecrwatch/pkg/logging"
	"ecrwatch/pkg/metrics"
	"ecrwatch/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	registry       *matcher.Registry
	service        *watcher.Service
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	metrics.RegisterWatcherMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterAPIMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.InitSession(); err != nil {
		return fmt.Errorf("failed to create AWS session: %w", err)
	}

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	registry, err := bootstrap.LoadRegistry(ctx, a.Config.Matchers, a.Session, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load matchers: %w", err)
	}
	a.registry = registry

	if err := a.InitBroker(ctx, serviceName, true); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initService(); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	a.initHTTPServer(ctx)
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb

	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *App) initService() error {
	svc, err := bootstrap.NewWatcher(a.Config, a.registry, bootstrap.WatcherDeps{
		Session:  a.Session,
		Requeuer: a.Producer,
		Redis:    a.redis,
		DB:       a.db,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.service = svc
	return nil
}

func (a *App) healthChecks() *health.CheckerRegistry {
	checks := health.NewCheckerRegistry()
	if a.db != nil {
		checks.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.redis != nil {
		checks.Register(health.NewRedisChecker(a.redis))
	}
	checks.Register(health.NewFuncChecker("matchers", func(ctx context.Context) error {
		if a.registry == nil {
			return fmt.Errorf("matcher registry not loaded")
		}
		return nil
	}))
	return checks
}

func (a *App) initHTTPServer(ctx context.Context) {
	checks := a.healthChecks()

	var handler http.Handler
	if a.Config.API.Enabled {
		var actions api.ActionLister
		if a.db != nil && a.Config.Audit.Enabled {
			actions = audit.NewRepository(a.db)
		}
		handler = api.NewRouter(ctx, a.Config, api.NewHandler(a.service, actions, a.Logger), checks, a.Logger)
	} else {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			h := checks.Check(r.Context())
			statusCode := http.StatusOK
			if h.Status == health.StatusUnhealthy {
				statusCode = http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(statusCode)
			fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
		})
		mux.Handle("/metrics", promhttp.Handler())
		handler = mux
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      handler,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		consumeCtx := logging.WithServiceName(gCtx, serviceName)
		a.Logger.InfowCtx(consumeCtx, "Consuming push events",
			"broker", a.Config.Broker.Type,
			"matchers", a.registry.Len(),
		)
		return a.Consumer.Consume(gCtx, a.service.HandleBatch)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, serviceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down watcher service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(a.redis, a.db)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
