// cmd/worker hosts the queue-driven side of the engine: it drains the Redis
// run stream, drives orchestrator.Orchestrator.Run per task, and persists
// outcomes through runstore. Bootstrap order (OTel before logger, id.Init,
// graceful shutdown on signal) is carried over from the teacher's own
// cmd/worker, trimmed of the issue-pipeline specific repo-cloning/SSH-key
// dependency checks this engine's sandboxed bash tool has no use for.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

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
	"taskforge.dev/engine/internal/orchestrator"
	"taskforge.dev/engine/internal/planner"
	"taskforge.dev/engine/internal/queue"
	"taskforge.dev/engine/internal/runstore"
	"taskforge.dev/engine/internal/tools"
	"taskforge.dev/engine/internal/worker"
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

	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "engine.worker"})
	slog.InfoContext(ctx, "engine worker booting", "env", cfg.Env)

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

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Redis.Stream,
		Group:        cfg.Redis.Group,
		Consumer:     cfg.Redis.Consumer,
		DLQStream:    cfg.Redis.DLQStream,
		BatchSize:    cfg.Redis.BatchSize,
		Block:        cfg.Redis.Block,
		MaxAttempts:  cfg.Redis.MaxAttempts,
		RequeueDelay: cfg.Redis.RequeueDelay,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to build redis consumer", "error", err)
		os.Exit(1)
	}

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

	ws, err := tools.NewWorkspace(cfg.Sandbox.WorkspaceRoot, "worker")
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

	w := worker.New(consumer, orch, runs, worker.Config{MaxAttempts: cfg.Redis.MaxAttempts})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Redis.Stream,
		Group:     cfg.Redis.Group,
		Consumer:  cfg.Redis.Consumer,
		MinIdle:   time.Minute,
		Interval:  30 * time.Second,
		BatchSize: cfg.Redis.BatchSize,
	}, consumer, w.ProcessMessage)
	go reclaimer.Run(ctx)
	defer reclaimer.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutdown signal received, stopping worker")
		w.Stop()
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "worker exited unexpectedly", "error", err)
			os.Exit(1)
		}
	}
}

func buildAgentClient(cfg config.LLMConfig) (llm.AgentClient, error) {
	llmCfg := llm.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}
	if cfg.Provider == "anthropic" {
		return llm.NewAnthropicClient(llmCfg)
	}
	return llm.NewAgentClient(llmCfg)
}
