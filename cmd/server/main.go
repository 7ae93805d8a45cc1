// Package main is the entrypoint for the listingscope API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/listingscope/internal/ai"
	"github.com/kiranshivaraju/listingscope/internal/api"
	"github.com/kiranshivaraju/listingscope/internal/api/handler"
	mw "github.com/kiranshivaraju/listingscope/internal/api/middleware"
	"github.com/kiranshivaraju/listingscope/internal/api/response"
	"github.com/kiranshivaraju/listingscope/internal/cache"
	"github.com/kiranshivaraju/listingscope/internal/config"
	"github.com/kiranshivaraju/listingscope/internal/engine"
	"github.com/kiranshivaraju/listingscope/internal/project"
	"github.com/kiranshivaraju/listingscope/internal/reaper"
	"github.com/kiranshivaraju/listingscope/internal/screenshot"
	"github.com/kiranshivaraju/listingscope/internal/store"
	"github.com/kiranshivaraju/listingscope/internal/telemetry"
)

const (
	shutdownTimeout = 30 * time.Second
	migrationsDir   = "migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		slog.Info(fmt.Sprintf(format, args...))
	}))

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Server.Env,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, migrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.WaitReady(ctx, cfg.Database.ConnectTimeout); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	aiProvider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", aiProvider.Name())

	pgStore := store.NewPostgresStore(pool)

	projects := project.NewService(
		pgStore,
		redisCache,
		engine.NewHTTPClient(cfg.Engine.WebhookURL, cfg.Engine.Timeout),
		project.NewSigner(cfg.Engine.CallbackSecret),
		project.Config{
			PublicBaseURL:     cfg.Server.PublicBaseURL,
			EngineTimeout:     cfg.Engine.Timeout,
			ShareCacheTTL:     cfg.Share.CacheTTL,
			ProcessingTimeout: cfg.Reaper.ProcessingTimeout,
		},
	)

	sweeper := reaper.New(pgStore, projects, reaper.Config{
		ProcessingTimeout: cfg.Reaper.ProcessingTimeout,
		Interval:          cfg.Reaper.Interval,
		BatchSize:         cfg.Reaper.BatchSize,
	})

	shots := screenshot.NewClient(cfg.Screenshot.BaseURL, cfg.Screenshot.Timeout)
	if !shots.Configured() {
		slog.Warn("screenshot service not configured, /api/v1/screenshot will return 503")
	}

	router := api.NewRouter(api.Dependencies{
		Auth:        mw.NewAuth(pgStore),
		RateLimit:   mw.NewRateLimit(redisCache, cfg.RateLimit.APIRequestsPerMin),
		PublicLimit: mw.NewIPLimit(cfg.RateLimit.PublicRPS, cfg.RateLimit.PublicBurst),
		IngestLimit: mw.NewIPLimit(cfg.RateLimit.IngestRPS, cfg.RateLimit.IngestBurst),

		HealthHandler: healthHandler(pgStore, redisCache),

		CreateProject:  handler.NewCreateProjectHandler(projects),
		ListProjects:   handler.NewListProjectsHandler(projects),
		GetProject:     handler.NewGetProjectHandler(projects),
		UpdateProject:  handler.NewUpdateProjectHandler(projects),
		DeleteProject:  handler.NewDeleteProjectHandler(projects),
		TriggerHandler: handler.NewTriggerHandler(projects),
		AnalyzeProject: handler.NewAnalyzeProjectHandler(projects),
		CreateShare:    handler.NewCreateShareHandler(projects),

		IngestHandler: handler.NewIngestHandler(projects),
		ResolveShare:  handler.NewResolveShareHandler(projects),

		ScreenshotHandler: handler.NewScreenshotHandler(shots),
		AnalyzeHandler:    handler.NewAnalyzeHandler(ai.NewAnalysisService(aiProvider, cfg.AI.InferenceTimeout)),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore, bcrypt.DefaultCost),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining connections...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
