package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/api"
	"github.com/Harshitk-cp/clawguild/internal/buildconfig"
	"github.com/Harshitk-cp/clawguild/internal/config"
	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/Harshitk-cp/clawguild/internal/events"
	"github.com/Harshitk-cp/clawguild/internal/messaging"
	"github.com/Harshitk-cp/clawguild/internal/provider"
	"github.com/Harshitk-cp/clawguild/internal/runtime"
	"github.com/Harshitk-cp/clawguild/internal/service"
	"github.com/Harshitk-cp/clawguild/internal/store"
	"github.com/Harshitk-cp/clawguild/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger, err := newLogger(config.LogLevel())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting clawguild",
		zap.String("version", buildconfig.Version()),
		zap.String("commit", buildconfig.Commit()),
		zap.String("built_at", buildconfig.BuildTime()))

	ctx := context.Background()

	var (
		agentStore      domain.AgentStore
		deploymentStore domain.DeploymentStore
		health          func(context.Context) error
	)
	if dbURL := config.DatabaseURL(); dbURL != "" {
		if err := store.Migrate(ctx, dbURL); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}

		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database")

		agentStore = store.NewAgentStore(pool)
		deploymentStore = store.NewDeploymentStore(pool)
		health = pool.Ping
	} else {
		logger.Warn("DATABASE_URL not set; state is kept in memory and lost on restart")
		agentStore = store.NewMemoryAgentStore()
		deploymentStore = store.NewMemoryDeploymentStore()
	}

	tel, err := telemetry.Setup(ctx, "clawguild")
	if err != nil {
		logger.Fatal("failed to set up telemetry", zap.Error(err))
	}
	metrics, err := telemetry.NewMetrics(tel.Meter())
	if err != nil {
		logger.Fatal("failed to create instruments", zap.Error(err))
	}

	providers, err := provider.NewRegistryFromOptions(ctx, provider.Options{
		FlyAPIToken:        config.FlyAPIToken(),
		FlyOrgSlug:         config.FlyOrgSlug(),
		RailwayAPIKey:      config.RailwayAPIKey(),
		AWSAccessKeyID:     config.AWSAccessKeyID(),
		AWSSecretAccessKey: config.AWSSecretAccessKey(),
		AWSRegion:          config.AWSRegion(),
		AWSAMIID:           config.AWSAMIID(),
		AWSInstanceType:    config.AWSInstanceType(),
		DockerEnabled:      config.DockerEnabled(),
		DockerNetwork:      config.DockerNetwork(),
		BreakerFailures:    config.ProviderBreakerFailures(),
		BreakerTimeout:     config.ProviderBreakerTimeout(),
	}, logger)
	if err != nil {
		logger.Fatal("failed to configure providers", zap.Error(err))
	}
	logger.Info("providers configured", zap.Strings("providers", providers.Providers()))

	var messenger domain.Messenger = messaging.Noop{}
	if token := config.DiscordBotToken(); token != "" {
		m, err := messaging.NewDiscordMessenger(token, logger)
		if err != nil {
			logger.Warn("discord messenger disabled", zap.Error(err))
		} else {
			messenger = m
		}
	}

	var publisher domain.EventPublisher = events.Noop{}
	if url := config.NATSURL(); url != "" {
		p, err := events.Connect(ctx, url, logger)
		if err != nil {
			logger.Warn("deployment events disabled", zap.String("url", url), zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	runtimes := runtime.DefaultRegistry()
	manager := service.NewDeploymentManager(agentStore, deploymentStore, providers, runtimes, service.ManagerOptions{
		PollInterval:    config.DeployPollInterval(),
		MaxPollAttempts: config.DeployMaxPollAttempts(),
		Messenger:       messenger,
		Events:          publisher,
		Metrics:         metrics,
	}, logger)
	deploymentSvc, err := service.NewDeploymentService(deploymentStore, providers, config.StatusCacheTTL(), logger)
	if err != nil {
		logger.Fatal("failed to create deployment service", zap.Error(err))
	}
	defer deploymentSvc.Close()

	reconciler := service.NewReconciler(manager, logger)
	reconciler.SetInterval(config.ReconcileInterval())
	reconciler.Start()

	app := api.NewApp(api.Services{
		Agents:      service.NewAgentService(agentStore, deploymentStore, manager, logger),
		Deployments: deploymentSvc,
		Manager:     manager,
		Providers:   providers,
		Runtimes:    runtimes,
	}, api.Options{
		APIKey:         config.APIKey(),
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
		Metrics:        metrics,
		Prometheus:     tel.Handler(),
		Health:         health,
	}, logger)
	defer app.Close()
	if config.APIKey() == "" {
		logger.Warn("API_KEY not set; /v1 routes are unauthenticated")
	}

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	reconciler.Stop()

	// Deploy requests block while polling; give them time to settle.
	shutdownCtx, cancel := context.WithTimeout(ctx, config.DeployPollInterval()*time.Duration(config.DeployMaxPollAttempts())+10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped")
}
