package gateway

import (
	"context"
	"errors"
	"sync"

	"taskforge.dev/engine/common/llm"
)

// ScriptedClient is a deterministic llm.AgentClient test double that replays
// a fixed script of responses in order, one per call. It is exported (not
// test-only) so the orchestrator, planner, assigner, answerer, and executor
// packages can all script the exact scenarios the specification describes
// (S1–S6) without depending on a live provider.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []llm.AgentResponse
	calls     []llm.AgentRequest
	model     string
}

// NewScriptedClient builds a client that returns contents[0], contents[1], …
// as successive plain-text (no tool call) responses.
func NewScriptedClient(contents ...string) *ScriptedClient {
	responses := make([]llm.AgentResponse, len(contents))
	for i, c := range contents {
		responses[i] = llm.AgentResponse{Content: c, FinishReason: "stop"}
	}
	return &ScriptedClient{responses: responses, model: "scripted-test-model"}
}

// NewScriptedToolClient builds a client from a pre-built response script,
// letting callers script tool-call turns as well as terminal text turns,
// e.g. to drive the executor's bounded tool-use loop.
func NewScriptedToolClient(responses ...llm.AgentResponse) *ScriptedClient {
	return &ScriptedClient{responses: responses, model: "scripted-test-model"}
}

func (c *ScriptedClient) ChatWithTools(_ context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	if len(c.responses) == 0 {
		return nil, errors.New("scripted client: no more scripted responses")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return &resp, nil
}

func (c *ScriptedClient) Model() string { return c.model }

// CallCount returns how many ChatWithTools calls have been made so far.
func (c *ScriptedClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// Calls returns the requests received so far, in order.
func (c *ScriptedClient) Calls() []llm.AgentRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.AgentRequest, len(c.calls))
	copy(out, c.calls)
	return out
}
