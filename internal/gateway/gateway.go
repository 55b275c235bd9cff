// Package gateway implements the LLM Gateway: the single place every role
// talks to the underlying chat-completion model. Planner, Assigner, and
// Answerer use the plain Run operation; Executor talks to the underlying
// common/llm.AgentClient directly when it needs tool-calling.
package gateway

import (
	"context"
	"fmt"
	"time"

	"taskforge.dev/engine/common/llm"
)

// CallFailedError wraps any transport/timeout/model error from the
// underlying provider. It is the sole error kind role operations see from
// the Gateway (spec: LLMCallFailed).
type CallFailedError struct {
	Err error
}

func (e *CallFailedError) Error() string { return fmt.Sprintf("llm call failed: %v", e.Err) }
func (e *CallFailedError) Unwrap() error { return e.Err }

// Result is one completed Gateway call: the model's final text, plus a
// formatted record of the interaction for the Ledger's trajectory.
type Result struct {
	FinalOutput    string
	RawInteraction string
}

// Gateway is the plain-text, non-tool-calling surface used by Planner,
// Assigner, and Answerer. Tool-calling (Executor) goes through the
// underlying llm.AgentClient directly — see internal/executor.
type Gateway interface {
	// Run sends a single system+user turn and returns the model's text.
	// An empty systemPrompt omits the system message.
	Run(ctx context.Context, systemPrompt, userPrompt string) (Result, error)
	Model() string
}

type agentGateway struct {
	client  llm.AgentClient
	timeout time.Duration
}

// New wraps an llm.AgentClient (OpenAI- or Anthropic-backed, or a scripted
// test double) as a plain-text Gateway with a fixed per-call timeout.
func New(client llm.AgentClient, timeout time.Duration) Gateway {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &agentGateway{client: client, timeout: timeout}
}

func (g *agentGateway) Run(ctx context.Context, systemPrompt, userPrompt string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var messages []llm.Message
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, llm.Message{Role: "user", Content: userPrompt})

	resp, err := g.client.ChatWithTools(ctx, llm.AgentRequest{Messages: messages})
	if err != nil {
		return Result{}, &CallFailedError{Err: err}
	}

	raw := fmt.Sprintf("SYSTEM:\n%s\n\nUSER:\n%s\n\nRESPONSE:\n%s", systemPrompt, userPrompt, resp.Content)
	return Result{FinalOutput: resp.Content, RawInteraction: raw}, nil
}

func (g *agentGateway) Model() string {
	return g.client.Model()
}
