// cmd/cli is the direct synchronous entry point: run(input_text, trace_id)
// -> Ledger, with no queue or HTTP surface in between. Grounded on the
// teacher's cmd/server and cmd/worker bootstrap order (OTel before logger,
// id.Init) but stripped to the single orchestrator.Run call this
// boundary needs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"taskforge.dev/engine/common/arangodb"
	"taskforge.dev/engine/common/id"
	"taskforge.dev/engine/common/llm"
	"taskforge.dev/engine/common/logger"
	"taskforge.dev/engine/common/otel"
	"taskforge.dev/engine/core/config"
	"taskforge.dev/engine/internal/answerer"
	"taskforge.dev/engine/internal/assigner"
	"taskforge.dev/engine/internal/executor"
	"taskforge.dev/engine/internal/gateway"
	"taskforge.dev/engine/internal/orchestrator"
	"taskforge.dev/engine/internal/planner"
	"taskforge.dev/engine/internal/tools"
)

func main() {
	taskFlag := flag.String("task", "", "input text for the run (required)")
	traceFlag := flag.String("trace-id", "", "trace id to correlate this run (default: generated)")
	flag.Parse()

	if *taskFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: cli -task \"...\" [-trace-id ...]")
		os.Exit(2)
	}

	ctx := context.Background()
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

	if err := id.Init(3); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	traceID := *traceFlag
	if traceID == "" {
		traceID = strconv.FormatInt(id.New(), 10)
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{RunID: &traceID, Component: "engine.cli"})

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

	ws, err := tools.NewWorkspace(cfg.Sandbox.WorkspaceRoot, fmt.Sprintf("%d_%s", time.Now().Unix(), traceID))
	if err != nil {
		slog.ErrorContext(ctx, "failed to create workspace", "error", err)
		os.Exit(1)
	}

	registry := executor.BuildRegistry(ws, cfg, arangoClient)
	descriptors := executor.DefaultDescriptors()
	executors := executor.BuildExecutors(descriptors, client, registry)

	gw := gateway.New(client, 90*time.Second)
	pl := planner.New(gw)
	as := assigner.New(gw)
	an := answerer.New(gw)

	orch := orchestrator.New(pl, as, an, executors)
	if cfg.PlannerMaxReflection > 0 {
		orch.MaxReflection = cfg.PlannerMaxReflection
	}

	l, err := orch.Run(ctx, *taskFlag, traceID)
	if err != nil {
		slog.ErrorContext(ctx, "run failed", "error", err, "trace_id", traceID)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println(l.FinalOutput)
	if l.FinalOutput == "" {
		os.Exit(1)
	}
}

func buildAgentClient(cfg config.LLMConfig) (llm.AgentClient, error) {
	llmCfg := llm.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model}
	if cfg.Provider == "anthropic" {
		return llm.NewAnthropicClient(llmCfg)
	}
	return llm.NewAgentClient(llmCfg)
}
