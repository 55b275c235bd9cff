// cmd/server hosts the HTTP surface: run submission and status lookup over
// gin, with the orchestrator wired in either synchronous or queue-backed
// mode depending on config.Config.AsyncRuns. Bootstrap ordering (OTel before
// logger, then id.Init, then gin router with Recovery/Logger middleware,
// then graceful shutdown) follows the teacher's cmd/server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"taskforge.dev/engine/common/arangodb"
	"taskforge.dev/engine/common/id"
	"taskforge.dev/engine/common/llm"
	"taskforge.dev/engine/common/logger"
	"taskforge.dev/engine/common/otel"
	"taskforge.dev/engine/core/config"
	"taskforge.dev/engine/core/db"
	"taskforge.dev/engine/internal/answerer"
	"taskforge.dev/engine/internal/assigner"
	"taskforge.dev/engine/internal/executor"
	"taskforge.dev/engine/internal/gateway"
	"taskforge.dev/engine/internal/httpapi"
	"taskforge.dev/engine/internal/orchestrator"
	"taskforge.dev/engine/internal/planner"
	"taskforge.dev/engine/internal/queue"
	"taskforge.dev/engine/internal/runstore"
	"taskforge.dev/engine/internal/tools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Setup(cfg)
	if telemetry != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = telemetry.Shutdown(shutdownCtx)
		}()
	}

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "engine.server"})
	slog.InfoContext(ctx, "engine server booting", "env", cfg.Env, "port", cfg.Port, "async_runs", cfg.AsyncRuns)

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	runs := runstore.New(database.Pool())
	if err := runs.EnsureSchema(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to ensure runstore schema", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	producer := queue.NewRedisProducer(redisClient, cfg.Redis.Stream)

	client, err := buildAgentClient(cfg.LLM)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build llm client", "error", err)
		os.Exit(1)
	}

	var arangoClient arangodb.Client
	if cfg.ArangoDB.Endpoint != "" {
		arangoClient, err = arangodb.New(ctx, arangodb.Config{
			URL:      cfg.ArangoDB.Endpoint,
			Username: cfg.ArangoDB.Username,
			Password: cfg.ArangoDB.Password,
			Database: cfg.ArangoDB.Database,
		})
		if err != nil {
			slog.WarnContext(ctx, "arangodb unavailable, codegraph tool will degrade", "error", err)
			arangoClient = nil
		}
	}

	ws, err := tools.NewWorkspace(cfg.Sandbox.WorkspaceRoot, "server")
	if err != nil {
		slog.ErrorContext(ctx, "failed to create workspace", "error", err)
		os.Exit(1)
	}

	registry := executor.BuildRegistry(ws, cfg, arangoClient)
	executors := executor.BuildExecutors(executor.DefaultDescriptors(), client, registry)

	gw := gateway.New(client, 90*time.Second)
	orch := orchestrator.New(planner.New(gw), assigner.New(gw), answerer.New(gw), executors)
	if cfg.PlannerMaxReflection > 0 {
		orch.MaxReflection = cfg.PlannerMaxReflection
	}

	auth := httpapi.NewAuthGate(cfg.WorkOS)
	api := httpapi.New(producer, orch, runs, auth, httpapi.Config{Async: cfg.AsyncRuns})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(httpapi.Recovery(), httpapi.Logger())
	api.Routes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.InfoContext(ctx, "engine server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "server exited unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.InfoContext(ctx, "shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
	}
}

func buildAgentClient(cfg config.LLMConfig) (llm.AgentClient, error) {
	llmCfg := llm.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}
	if cfg.Provider == "anthropic" {
		return llm.NewAnthropicClient(llmCfg)
	}
	return llm.NewAgentClient(llmCfg)
}
