package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/kurumart/kurumart-backend/api/routes"
	"github.com/kurumart/kurumart-backend/internal/auth"
	"github.com/kurumart/kurumart-backend/internal/bidding"
	"github.com/kurumart/kurumart-backend/internal/bidevents"
	"github.com/kurumart/kurumart-backend/internal/catalog"
	"github.com/kurumart/kurumart-backend/internal/upstream"
	"github.com/kurumart/kurumart-backend/internal/users"
	"github.com/kurumart/kurumart-backend/pkg/auth/session"
	"github.com/kurumart/kurumart-backend/pkg/config"
	"github.com/kurumart/kurumart-backend/pkg/db"
	"github.com/kurumart/kurumart-backend/pkg/logger"
	"github.com/kurumart/kurumart-backend/pkg/metrics"
	"github.com/kurumart/kurumart-backend/pkg/migrate"
	"github.com/kurumart/kurumart-backend/pkg/outbox"
	"github.com/kurumart/kurumart-backend/pkg/pubsub"
	"github.com/kurumart/kurumart-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	var pubsubClient *pubsub.Client
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "gcp project not configured, pubsub health check disabled")
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:   catalog.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	recorder, err := bidevents.NewRecorder(dbClient, outbox.NewService(outbox.NewRepository(dbClient.DB()), logg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create bid event recorder", err)
		os.Exit(1)
	}

	biddingMetrics := metrics.NewBiddingMetrics(prometheus.DefaultRegisterer)

	transport, err := upstream.NewClient(cfg.Upstream, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create upstream client", err)
		os.Exit(1)
	}

	coordinator, err := bidding.NewCoordinator(bidding.CoordinatorParams{
		Config:    cfg.Bidding,
		Logger:    logg,
		Metrics:   biddingMetrics,
		Transport: transport,
		Recorder:  recorder,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bid coordinator", err)
		os.Exit(1)
	}

	runCtx, stopCoordinator := context.WithCancel(context.Background())
	defer stopCoordinator()
	go coordinator.Run(runCtx)

	if err := catalogService.SeedCoordinator(context.Background(), coordinator); err != nil {
		logg.Error(context.Background(), "failed to seed bid coordinator", err)
		os.Exit(1)
	}

	feed, err := upstream.NewFeed(upstream.FeedParams{
		Config:    cfg.Upstream,
		Logger:    logg,
		Metrics:   biddingMetrics,
		OnMessage: coordinator.HandleMessage,
		OnStatus:  coordinator.SetConnectionStatus,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auction feed", err)
		os.Exit(1)
	}
	feed.Connect(context.Background())

	router := routes.NewRouter(routes.RouterParams{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		PubSub:         pubsubClient,
		SessionManager: sessionManager,
		AuthService:    authService,
		CatalogService: catalogService,
		Engine:         coordinator,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	case <-signalCtx.Done():
	}

	logg.Info(ctx, "shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	var shutdownErr error
	shutdownErr = multierr.Append(shutdownErr, server.Shutdown(shutdownCtx))
	feed.Disconnect()
	stopCoordinator()
	recorder.Flush()

	if shutdownErr != nil {
		logg.Error(ctx, "api server shutdown finished with errors", shutdownErr)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
