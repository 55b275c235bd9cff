package executor

import (
	"time"

	"taskforge.dev/engine/common/arangodb"
	"taskforge.dev/engine/common/llm"
	"taskforge.dev/engine/core/config"
	"taskforge.dev/engine/internal/ledger"
	"taskforge.dev/engine/internal/tools"
)

// BuildRegistry assembles the full tool registry available to Executors,
// wiring each adapter against its backing configuration. codegraph always
// registers; without an ArangoDB client its own Invoke degrades to an
// "unavailable" result. docsearch registers only when a Typesense server
// URL is configured; otherwise a descriptor naming it hits the "not
// available" skip path in tools.Registry.Subset.
func BuildRegistry(ws *tools.Workspace, cfg config.Config, arango arangodb.Client) *tools.Registry {
	sandboxTimeout := 10
	if cfg.Sandbox.TimeoutSeconds > 0 {
		sandboxTimeout = cfg.Sandbox.TimeoutSeconds
	}

	registered := []tools.Tool{
		tools.NewBashTool(ws, time.Duration(sandboxTimeout)*time.Second),
		&tools.GlobTool{Workspace: ws},
		&tools.GrepTool{Workspace: ws},
		&tools.ReadTool{Workspace: ws},
		tools.CalculatorTool{},
		tools.NewCodegraphTool(arango),
	}

	if cfg.Typesense.ServerURL != "" {
		registered = append(registered, tools.NewDocSearchTool(
			cfg.Typesense.ServerURL, cfg.Typesense.APIKey, cfg.Typesense.Collection, cfg.Typesense.QueryBy))
	}

	return tools.NewRegistry(registered...)
}

// DefaultDescriptors names the standard executor roster: a general-purpose
// agent with the full tool set and a narrow math-only executor, mirroring
// spec.md's own S1 scenario naming both a general executor and a MathExec.
func DefaultDescriptors() []ledger.ExecutorDescriptor {
	return []ledger.ExecutorDescriptor{
		{
			Name:        "general",
			Description: "General-purpose executor with shell, file search, document search, and code-graph tools.",
			ToolNames:   []string{"bash", "glob", "grep", "read", "codegraph", "docsearch"},
		},
		{
			Name:        "math",
			Description: "Executor scoped to pure arithmetic evaluation.",
			ToolNames:   []string{"calculator"},
		},
	}
}

// BuildExecutors builds one Executor per descriptor, each scoped to its own
// tool subset from a shared registry and a shared tool-calling LLM client.
func BuildExecutors(descriptors []ledger.ExecutorDescriptor, client llm.AgentClient, registry *tools.Registry) map[string]*Executor {
	executors := make(map[string]*Executor, len(descriptors))
	for _, d := range descriptors {
		executors[d.Name] = New(d, client, registry)
	}
	return executors
}
