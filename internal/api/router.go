package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/api/handlers"
	mw "github.com/Harshitk-cp/clawguild/internal/api/middleware"
	"github.com/Harshitk-cp/clawguild/internal/buildconfig"
	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/Harshitk-cp/clawguild/internal/provider"
	clawruntime "github.com/Harshitk-cp/clawguild/internal/runtime"
	"github.com/Harshitk-cp/clawguild/internal/service"
	"github.com/Harshitk-cp/clawguild/internal/store"
	"github.com/Harshitk-cp/clawguild/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const limiterIdleTimeout = 10 * time.Minute

// Services are the wired domain services the API exposes.
type Services struct {
	Agents      *service.AgentService
	Deployments *service.DeploymentService
	Manager     *service.DeploymentManager
	Providers   *provider.Registry
	Runtimes    *clawruntime.Registry
}

type Options struct {
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int

	Metrics *telemetry.Metrics
	// Prometheus serves /metrics/prometheus when set.
	Prometheus http.Handler
	// Health checks backing storage. Nil means always healthy.
	Health func(ctx context.Context) error
}

// App holds the router and the state behind /metrics.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
	stopLimiter  chan struct{}
}

func NewApp(svc Services, opts Options, logger *zap.Logger) *App {
	agentHandler := handlers.NewAgentHandler(svc.Agents, svc.Manager)
	deploymentHandler := handlers.NewDeploymentHandler(svc.Deployments, svc.Agents, svc.Manager)
	providerHandler := handlers.NewProviderHandler(svc.Providers, svc.Runtimes)

	r := chi.NewRouter()
	app := &App{
		Router:      r,
		startTime:   time.Now(),
		stopLimiter: make(chan struct{}),
	}

	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 100
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 20
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount, opts.Metrics)
	limiter := mw.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	go limiter.Run(limiterIdleTimeout, app.stopLimiter)

	// Global middleware (order matters)
	r.Use(mw.RequestID(logger))
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging())
	r.Use(middleware.Recoverer)
	r.Use(limiter.Middleware)

	// No auth
	r.Get("/health", healthHandler(opts.Health))
	r.Get("/metrics", app.metricsHandler())
	if opts.Prometheus != nil {
		r.Method(http.MethodGet, "/metrics/prometheus", opts.Prometheus)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(opts.APIKey))

		r.Get("/providers", providerHandler.List)

		r.Route("/agents", func(r chi.Router) {
			r.Post("/", agentHandler.Create)
			r.Get("/", agentHandler.List)
			r.Put("/telegram", agentHandler.UpdateTelegram)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", agentHandler.GetByID)
				r.Get("/status", agentHandler.Status)
				r.Post("/deploy", agentHandler.Deploy)
				r.Delete("/deployment", agentHandler.Destroy)
			})
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Get("/", deploymentHandler.List)
			r.Post("/multi", deploymentHandler.DeployMulti)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deploymentHandler.GetByID)
				r.Get("/logs", deploymentHandler.Logs)
				r.Get("/live", deploymentHandler.Live)
			})
		})
	})

	return app
}

// Close stops the limiter eviction loop.
func (app *App) Close() {
	close(app.stopLimiter)
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok", "build": buildconfig.VersionInfo()}
		status := http.StatusOK
		if check != nil {
			if err := check(r.Context()); err != nil {
				body["status"] = "error"
				body["error"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.AgentStore      = (*store.AgentStore)(nil)
	_ domain.AgentStore      = (*store.MemoryAgentStore)(nil)
	_ domain.DeploymentStore = (*store.DeploymentStore)(nil)
	_ domain.DeploymentStore = (*store.MemoryDeploymentStore)(nil)
	_ domain.ProviderAdapter = (*provider.FlyIOAdapter)(nil)
	_ domain.ProviderAdapter = (*provider.RailwayAdapter)(nil)
	_ domain.ProviderAdapter = (*provider.AWSAdapter)(nil)
	_ domain.ProviderAdapter = (*provider.DockerAdapter)(nil)
	_ domain.ProviderAdapter = (*provider.MockAdapter)(nil)
)
