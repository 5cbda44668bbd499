package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/librarydesk-backend/api/routes"
	"github.com/angelmondragon/librarydesk-backend/internal/cart"
	"github.com/angelmondragon/librarydesk-backend/internal/catalog"
	"github.com/angelmondragon/librarydesk-backend/internal/checkout"
	"github.com/angelmondragon/librarydesk-backend/internal/loans"
	"github.com/angelmondragon/librarydesk-backend/internal/members"
	"github.com/angelmondragon/librarydesk-backend/internal/returns"
	"github.com/angelmondragon/librarydesk-backend/pkg/config"
	"github.com/angelmondragon/librarydesk-backend/pkg/db"
	"github.com/angelmondragon/librarydesk-backend/pkg/logger"
	"github.com/angelmondragon/librarydesk-backend/pkg/metrics"
	"github.com/angelmondragon/librarydesk-backend/pkg/migrate"
	"github.com/angelmondragon/librarydesk-backend/pkg/redis"
	"github.com/angelmondragon/librarydesk-backend/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, "librarydesk-api")
	if err != nil {
		logg.Error(ctx, "failed to set up tracing", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logg.Error(context.Background(), "error flushing traces", err)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured; idempotency replay and shared rate limits disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	circulation := metrics.NewCirculationMetrics(registry)

	services, err := buildServices(cfg, logg, dbClient, redisClient, circulation)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, routes.Infra{DB: dbClient, Redis: redisClient, Gatherer: registry}, services),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, circulation *metrics.CirculationMetrics) (routes.Services, error) {
	conn := dbClient.DB()
	bookRepo := catalog.NewRepository(conn)
	memberRepo := members.NewRepository(conn)
	loanRepo := loans.NewRepository(conn)

	catalogSvc, err := catalog.NewService(bookRepo, dbClient)
	if err != nil {
		return routes.Services{}, err
	}
	memberSvc, err := members.NewService(memberRepo, dbClient)
	if err != nil {
		return routes.Services{}, err
	}
	loanSvc, err := loans.NewService(loanRepo, dbClient, cfg.Circulation.RenewalPeriodDays)
	if err != nil {
		return routes.Services{}, err
	}

	var store cart.Store = cart.NewMemoryStore(cfg.Circulation.CartTTL)
	if cfg.FeatureFlags.RedisCartStore {
		if redisClient == nil {
			logg.Warn(context.Background(), "redis cart store requested without redis; using in-process carts")
		} else {
			redisStore, err := cart.NewRedisStore(redisClient, cfg.Circulation.CartTTL)
			if err != nil {
				return routes.Services{}, err
			}
			store = redisStore
		}
	}
	cartSvc, err := cart.NewService(store, bookRepo)
	if err != nil {
		return routes.Services{}, err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Tx:         dbClient,
		Carts:      cartSvc,
		Bind:       checkout.RepositoryBinder(bookRepo, memberRepo, loanRepo),
		LoanPeriod: cfg.Circulation.LoanPeriod(),
		Logger:     logg,
		Metrics:    circulation,
	})
	if err != nil {
		return routes.Services{}, err
	}
	returnSvc, err := returns.NewService(dbClient, returns.RepositoryBinder(loanRepo, bookRepo, memberRepo), circulation)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Catalog:  catalogSvc,
		Members:  memberSvc,
		Loans:    loanSvc,
		Carts:    cartSvc,
		Checkout: checkoutSvc,
		Returns:  returnSvc,
	}, nil
}
