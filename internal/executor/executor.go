// Package executor implements the Tool Registry / Executor role: a bounded,
// LLM-driven tool-use conversation that discharges one subtask using a
// fixed set of named tool adapters.
//
// The control loop — doom-loop detection on repeated identical tool calls,
// a single step bound (MaxSteps) forcing a final synthesis turn, and bounded
// concurrent tool dispatch — is grounded on the teacher's own
// internal/brain/explore_agent.go Explore loop, generalized from a
// single-purpose code-exploration agent into a generic subtask executor
// parameterized by an ExecutorDescriptor's tool subset.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"taskforge.dev/engine/common/llm"
	"taskforge.dev/engine/internal/ledger"
	"taskforge.dev/engine/internal/tools"
)

const (
	defaultMaxSteps       = 25
	defaultMaxParallelInv = 4
	doomLoopThreshold     = 3
)

// Executor runs a bounded tool-use conversation for one ExecutorDescriptor,
// talking to the provider's tool-calling feature directly (not through the
// plain-text gateway.Gateway, which Planner/Assigner/Answerer use instead).
type Executor struct {
	Descriptor ledger.ExecutorDescriptor
	LLM        llm.AgentClient
	Registry   *tools.Registry
	MaxSteps   int
}

// New builds an Executor for one descriptor, scoping the tool registry to
// exactly the descriptor's named tools.
func New(descriptor ledger.ExecutorDescriptor, client llm.AgentClient, registry *tools.Registry) *Executor {
	return &Executor{
		Descriptor: descriptor,
		LLM:        client,
		Registry:   registry.Subset(descriptor.ToolNames),
		MaxSteps:   defaultMaxSteps,
	}
}

type toolCallRecord struct {
	name string
	args string
}

// Execute runs the tool-use loop for subtask st, writing its result onto the
// Ledger. Status classification is left to the Planner's subsequent
// plan_check call — Execute never sets a terminal status itself.
func (e *Executor) Execute(ctx context.Context, l *ledger.Ledger, st *ledger.Subtask) error {
	maxSteps := e.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	messages := []llm.Message{
		{Role: "system", Content: e.systemPrompt()},
		{Role: "user", Content: st.Description},
	}

	var recentCalls []toolCallRecord

	for step := 1; ; step++ {
		if step > maxSteps {
			return e.finish(ctx, l, st, messages, "Maximum steps reached. Report your final result now based on what you've found.")
		}

		resp, err := e.LLM.ChatWithTools(ctx, llm.AgentRequest{
			Messages: messages,
			Tools:    e.Registry.Definitions(),
		})
		if err != nil {
			return fmt.Errorf("executor %s: step %d: %w", e.Descriptor.Name, step, err)
		}

		if len(resp.ToolCalls) == 0 {
			l.SetSubtaskResult(st.ID, summarize(resp.Content), resp.Content)
			l.AppendTrajectory(fmt.Sprintf("executor.%s", e.Descriptor.Name), resp.Content)
			return nil
		}

		if len(resp.ToolCalls) == 1 {
			call := resp.ToolCalls[0]
			recentCalls = append(recentCalls, toolCallRecord{name: call.Name, args: normalizeArgs(call.Arguments)})
			if len(recentCalls) > doomLoopThreshold {
				recentCalls = recentCalls[1:]
			}
			if len(recentCalls) == doomLoopThreshold && allIdentical(recentCalls) {
				return e.finish(ctx, l, st, messages,
					"You're repeating the same tool call. Report your final result now based on what you've found so far.")
			}
		} else {
			recentCalls = nil
		}

		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})

		results := e.invokeParallel(ctx, resp.ToolCalls)
		for _, res := range results {
			messages = append(messages, llm.Message{Role: "tool", Content: res.text, ToolCallID: res.callID})
		}
	}
}

type invocationResult struct {
	callID string
	text   string
}

// invokeParallel dispatches independent tool calls from one model turn
// concurrently, bounded by defaultMaxParallelInv, per the spec's allowance
// for parallelism inside a subtask provided tools are reentrant.
func (e *Executor) invokeParallel(ctx context.Context, calls []llm.ToolCall) []invocationResult {
	results := make([]invocationResult, len(calls))
	sem := make(chan struct{}, defaultMaxParallelInv)
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c llm.ToolCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			tool, ok := e.Registry.Get(c.Name)
			if !ok {
				results[idx] = invocationResult{callID: c.ID, text: fmt.Sprintf(`{"error":"unknown tool %q"}`, c.Name)}
				return
			}
			res, err := tool.Invoke(ctx, c.Arguments)
			if err != nil {
				results[idx] = invocationResult{callID: c.ID, text: fmt.Sprintf(`{"error":%q}`, err.Error())}
				return
			}
			if res.Error != "" {
				results[idx] = invocationResult{callID: c.ID, text: fmt.Sprintf(`{"error":%q}`, res.Error)}
				return
			}
			results[idx] = invocationResult{callID: c.ID, text: res.Output}
		}(i, call)
	}

	wg.Wait()
	return results
}

// finish forces a final text-only turn (no tools) when a step/doom-loop
// bound is hit, so the subtask still ends with a usable result instead of
// an abrupt failure.
func (e *Executor) finish(ctx context.Context, l *ledger.Ledger, st *ledger.Subtask, messages []llm.Message, nudge string) error {
	messages = append(messages, llm.Message{Role: "user", Content: nudge})
	resp, err := e.LLM.ChatWithTools(ctx, llm.AgentRequest{Messages: messages})
	if err != nil {
		return fmt.Errorf("executor %s: forced synthesis: %w", e.Descriptor.Name, err)
	}
	l.SetSubtaskResult(st.ID, summarize(resp.Content), resp.Content)
	l.AppendTrajectory(fmt.Sprintf("executor.%s", e.Descriptor.Name), resp.Content)
	return nil
}

func (e *Executor) systemPrompt() string {
	return fmt.Sprintf("You are the %q executor: %s\nUse the available tools as needed, then report a concise final result.",
		e.Descriptor.Name, e.Descriptor.Description)
}

func summarize(content string) string {
	const maxLen = 400
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "..."
}

func normalizeArgs(args string) string {
	var v any
	if err := json.Unmarshal([]byte(args), &v); err != nil {
		return args
	}
	normalized, err := json.Marshal(v)
	if err != nil {
		return args
	}
	return string(normalized)
}

func allIdentical(calls []toolCallRecord) bool {
	if len(calls) == 0 {
		return false
	}
	first := calls[0]
	for _, c := range calls[1:] {
		if c.name != first.name || c.args != first.args {
			return false
		}
	}
	return true
}
