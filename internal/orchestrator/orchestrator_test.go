package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"taskforge.dev/engine/internal/answerer"
	"taskforge.dev/engine/internal/assigner"
	"taskforge.dev/engine/internal/gateway"
	"taskforge.dev/engine/internal/planner"
)

// scriptedGateway answers Run calls by matching a substring against the
// system prompt, so a test can script each role's response without a real
// LLM client. Unmatched calls fail the test loudly rather than silently
// returning an empty string.
type scriptedGateway struct {
	t     *testing.T
	rules []scriptRule
}

type scriptRule struct {
	systemContains string
	response       string
}

func (g *scriptedGateway) Run(_ context.Context, systemPrompt, _ string) (gateway.Result, error) {
	for _, r := range g.rules {
		if strings.Contains(systemPrompt, r.systemContains) {
			return gateway.Result{FinalOutput: r.response, RawInteraction: r.response}, nil
		}
	}
	g.t.Fatalf("scriptedGateway: no rule matched system prompt: %q", systemPrompt)
	return gateway.Result{}, fmt.Errorf("unreachable")
}

func (g *scriptedGateway) Model() string { return "scripted-test-model" }

func TestOrchestratorRunDirectAnswerHappyPath(t *testing.T) {
	gw := &scriptedGateway{t: t, rules: []scriptRule{
		{"planning role", "<task>answer the question</task>"},
		{"assignment role", "<mode>DIRECT_ANSWER</mode><selected_agent>none</selected_agent><direct_answer>42</direct_answer>"},
		{"self-checking", "<correct>yes</correct>"},
		{"answering role", "<answer>42</answer><confidence>high</confidence><answer_uniqueness>unique</answer_uniqueness>"},
	}}

	orch := New(planner.New(gw), assigner.New(gw), answerer.New(gw), nil)

	l, err := orch.Run(context.Background(), "what is the answer", "trace-1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if l.FinalOutput != "42" {
		t.Errorf("FinalOutput = %q, want %q", l.FinalOutput, "42")
	}
	if len(l.Plan) != 1 || l.Plan[0].Status != "success" {
		t.Errorf("expected single successful subtask, got %+v", l.Plan)
	}
}

func TestOrchestratorRunReflectsOnUnknownExecutor(t *testing.T) {
	planCalls := 0
	gw := &scriptedGateway{t: t, rules: nil}
	gw.rules = []scriptRule{
		{"assignment role", "<mode>ASSIGN_AGENT</mode><selected_agent>nonexistent</selected_agent><detailed_task_description>do it</detailed_task_description>"},
		{"reflecting", "reflection: executor does not exist, replan without it"},
	}

	// plan_task's response differs across the initial call and the
	// post-reflection replan, so it can't be a static rule — route it
	// through a small stateful wrapper instead.
	planGw := &planThenReplanGateway{inner: gw, onPlanCall: func() { planCalls++ }}

	orch := New(planner.New(planGw), assigner.New(planGw), answerer.New(planGw), nil)
	l, err := orch.Run(context.Background(), "do something", "trace-2")
	if err == nil {
		t.Fatalf("Run() error = nil, want an error once reflection budget (1) is exhausted")
	}
	if planCalls != 2 {
		t.Errorf("plan_task called %d times, want 2 (initial + one reflection replan)", planCalls)
	}
	if l.Plan[0].Status == "success" {
		t.Errorf("expected the unassignable subtask to remain unresolved, got %+v", l.Plan[0])
	}
}

// planThenReplanGateway answers plan_task (system prompt containing
// "planning role") with a fresh single-task plan every call, and everything
// else via the wrapped scriptedGateway.
type planThenReplanGateway struct {
	inner      *scriptedGateway
	onPlanCall func()
}

func (g *planThenReplanGateway) Run(ctx context.Context, systemPrompt, userPrompt string) (gateway.Result, error) {
	if strings.Contains(systemPrompt, "planning role") && !strings.Contains(systemPrompt, "reflecting") {
		g.onPlanCall()
		return gateway.Result{FinalOutput: "<task>do something</task>", RawInteraction: "<task>do something</task>"}, nil
	}
	return g.inner.Run(ctx, systemPrompt, userPrompt)
}

func (g *planThenReplanGateway) Model() string { return "scripted-test-model" }
