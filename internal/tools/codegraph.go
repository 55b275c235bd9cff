package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"taskforge.dev/engine/common/arangodb"
	"github.com/invopop/jsonschema"
)

const (
	defaultGraphDepth = 1
	maxGraphDepth     = 3
)

// CodegraphParams is the argument shape for the codegraph tool. Grounded on
// the teacher's internal/brain/retriever_tools.go GraphParams, unchanged
// down to the operation enum and qname-based target addressing.
type CodegraphParams struct {
	Operation string `json:"operation" jsonschema:"required,enum=callers,enum=callees,enum=implementations,enum=methods,enum=usages,enum=inheritors,description=Graph operation to run"`
	Target    string `json:"target" jsonschema:"required,description=Qualified name of the entity to query (e.g. 'github.com/example/pkg.Type')"`
	Depth     int    `json:"depth,omitempty" jsonschema:"description=Traversal depth for callers/callees (default 1, max 3)"`
}

// CodegraphTool queries a code relationship graph backed by ArangoDB.
// Grounded on the teacher's common/arangodb.Client, whose GetCallers/
// GetCallees/GetImplementations/GetMethods/GetUsages/GetInheritors methods
// the teacher's own retriever sub-agent calls — the same calls this tool
// makes, repurposed from a code-exploration sub-agent into a generic
// Executor tool. When no ArangoDB client is configured, Invoke reports the
// tool as unavailable rather than failing the subtask, mirroring the
// teacher's cmd/explore/main.go graceful-disable posture for an optional
// backing store.
type CodegraphTool struct {
	client arangodb.Client
}

// NewCodegraphTool wraps an arangodb.Client. A nil client is valid: the tool
// still registers, but every call reports "unavailable".
func NewCodegraphTool(client arangodb.Client) *CodegraphTool {
	return &CodegraphTool{client: client}
}

func (t *CodegraphTool) Name() string { return "codegraph" }
func (t *CodegraphTool) Description() string {
	return "Query code relationships (callers, callees, implementations, methods, usages, inheritors) " +
		"by qualified name. Unavailable if no code graph is configured for this run."
}
func (t *CodegraphTool) Schema() any {
	return jsonschema.Reflector{DoNotReference: true}.Reflect(&CodegraphParams{})
}

func (t *CodegraphTool) Invoke(ctx context.Context, argumentsJSON string) (Result, error) {
	if t.client == nil {
		return Result{Error: "codegraph unavailable: no code graph configured for this run"}, nil
	}

	var params CodegraphParams
	if err := json.Unmarshal([]byte(argumentsJSON), &params); err != nil {
		return Result{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if params.Target == "" {
		return Result{Error: "target is required"}, nil
	}

	depth := params.Depth
	if depth <= 0 {
		depth = defaultGraphDepth
	}
	if depth > maxGraphDepth {
		depth = maxGraphDepth
	}

	var (
		nodes []arangodb.GraphNode
		err   error
	)

	switch params.Operation {
	case "callers":
		nodes, err = t.client.GetCallers(ctx, params.Target, depth)
	case "callees":
		nodes, err = t.client.GetCallees(ctx, params.Target, depth)
	case "implementations":
		nodes, err = t.client.GetImplementations(ctx, params.Target)
	case "methods":
		nodes, err = t.client.GetMethods(ctx, params.Target)
	case "usages":
		nodes, err = t.client.GetUsages(ctx, params.Target)
	case "inheritors":
		nodes, err = t.client.GetInheritors(ctx, params.Target)
	default:
		return Result{Error: fmt.Sprintf("unknown operation %q", params.Operation)}, nil
	}
	if err != nil {
		return Result{Error: fmt.Sprintf("codegraph query failed: %v", err)}, nil
	}

	if len(nodes) == 0 {
		return Result{Output: "no results"}, nil
	}

	var b strings.Builder
	for _, n := range nodes {
		fmt.Fprintf(&b, "%s  %s:%d  %s\n", n.QName, n.Filepath, n.Pos, n.Signature)
	}
	return Result{Output: b.String()}, nil
}
