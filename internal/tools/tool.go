// Package tools holds the Executor's tool adapters: bash, file search,
// document search, and a calculator. Every adapter satisfies the Tool
// interface's invoke(args) -> structured_result contract; failures are
// returned as a value, never a panic or a control-flow exception, so the
// Executor can feed them back into the model's conversation.
package tools

import (
	"context"

	"taskforge.dev/engine/common/llm"
)

// Tool is one named, independently invocable adapter an Executor may call.
type Tool interface {
	Name() string
	Description() string
	// Schema returns a JSON Schema object describing the tool's arguments,
	// suitable for the LLM Gateway's tool-calling request.
	Schema() any
	// Invoke runs the tool. Tool-level failures (bad args, sandbox error,
	// timeout) are returned inside Result.Error, not as the error return —
	// the error return is reserved for invocation-plumbing failures such as
	// a context cancellation the Executor itself must react to.
	Invoke(ctx context.Context, argumentsJSON string) (Result, error)
}

// Result is a tool's structured outcome. Exactly one of Output/Error is set.
type Result struct {
	Output string
	Error  string
}

// Registry holds the named tools available to one Executor.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a Registry from a list of tools, indexed by name.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Get returns the named tool, or false if it isn't registered.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names lists every registered tool name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Definitions renders the registry's tools as llm.Tool definitions for an
// AgentClient.ChatWithTools request.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, llm.Tool{Name: t.Name(), Description: t.Description(), Parameters: t.Schema()})
	}
	return defs
}

// Subset returns a new Registry containing only the named tools. Tools are
// held in a map, so the order of names is not kept. Unknown names are skipped —
// an ExecutorDescriptor naming a tool nobody registered degrades to "not
// available" rather than panicking.
func (r *Registry) Subset(names []string) *Registry {
	sub := &Registry{tools: make(map[string]Tool, len(names))}
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			sub.tools[name] = t
		}
	}
	return sub
}
