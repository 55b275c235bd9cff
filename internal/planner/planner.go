// Package planner produces and revises the task plan carried on the Ledger.
//
// It implements the four Planner operations: an initial/replan pass, a
// mid-run plan-tail revision, a per-subtask result classification, and a
// failure reflection used to seed the next replan. All four talk to the
// Gateway in plain text and parse tagged responses via internal/protocol.
package planner

import (
	"context"
	"fmt"
	"strings"

	"taskforge.dev/engine/internal/gateway"
	"taskforge.dev/engine/internal/ledger"
	"taskforge.dev/engine/internal/protocol"
)

// defaultModifyPlanBudget bounds how many times plan_update may rewrite the
// remaining plan tail in one run.
const defaultModifyPlanBudget = 3

// Planner drives plan_task/plan_check/plan_update/reflect_on_failure against
// a Gateway, tracking its own modify-plan budget across a run.
type Planner struct {
	gw     gateway.Gateway
	budget int
}

// New builds a Planner with the default modify-plan budget.
func New(gw gateway.Gateway) *Planner {
	return &Planner{gw: gw, budget: defaultModifyPlanBudget}
}

// RemainingBudget reports how many plan_update rewrites remain.
func (p *Planner) RemainingBudget() int { return p.budget }

// PlanTask produces an initial plan, or a replan when failure_info is
// populated on the Ledger.
func (p *Planner) PlanTask(ctx context.Context, l *ledger.Ledger) error {
	var system, user string
	if l.FailureInfo == "" {
		// A fresh Ledger means a new run: the modify-plan budget starts over.
		p.budget = defaultModifyPlanBudget
		system = initialPlanSystemPrompt
		user = fmt.Sprintf("Overall task:\n%s\n\nAvailable executors:\n%s",
			l.OverallTask, l.ExecutorsInfo())
	} else {
		system = replanSystemPrompt
		user = fmt.Sprintf("Overall task:\n%s\n\nAvailable executors:\n%s\n\nFailure analysis from the previous attempt:\n%s",
			l.OverallTask, l.ExecutorsInfo(), l.FailureInfo)
	}

	result, err := p.gw.Run(ctx, system, user)
	if err != nil {
		return err
	}
	l.AppendTrajectory("planner.plan_task", result.RawInteraction)

	tasks := protocol.ParseTasks(result.FinalOutput)
	l.SetPlan(tasks)

	if experience, ok := protocol.ParseExperience(result.FinalOutput); ok {
		l.SetExperienceFromFailure(experience)
	}
	return nil
}

// PlanCheck classifies the result of a just-finished subtask into a terminal
// status and writes it onto the Ledger.
func (p *Planner) PlanCheck(ctx context.Context, l *ledger.Ledger, subtaskID int) error {
	st := subtaskByID(l, subtaskID)
	if st == nil {
		return fmt.Errorf("planner: plan_check: no subtask with id %d", subtaskID)
	}

	user := fmt.Sprintf("Overall task:\n%s\n\nCurrent plan:\n%s\n\nSubtask %d result:\n%s",
		l.OverallTask, l.FormattedPlan(), st.ID, st.ResultDetailed)

	result, err := p.gw.Run(ctx, planCheckSystemPrompt, user)
	if err != nil {
		return err
	}
	l.AppendTrajectory("planner.plan_check", result.RawInteraction)

	status := protocol.ParseTaskStatus(result.FinalOutput)
	l.SetSubtaskStatus(subtaskID, status)
	return nil
}

// PlanUpdateResult reports the orchestrator-facing outcome of a PlanUpdate
// call: the effective choice after budget coercion.
type PlanUpdateResult struct {
	Choice protocol.PlanUpdateChoice
}

// PlanUpdate is called only when at least one not_started subtask remains.
// It reads the finished prefix and remaining tail, asks the model to choose
// continue/update/early_completion, and — on update — rewrites the tail,
// decrementing the modify-plan budget. Once the budget is exhausted this
// returns ChoiceContinue without calling the Gateway at all.
func (p *Planner) PlanUpdate(ctx context.Context, l *ledger.Ledger, cursorSubtaskID int) (PlanUpdateResult, error) {
	if p.budget <= 0 {
		return PlanUpdateResult{Choice: protocol.ChoiceContinue}, nil
	}

	user := fmt.Sprintf("Overall task:\n%s\n\nFinished prefix and remaining tail:\n%s",
		l.OverallTask, strings.Join(l.FormattedPlanWithResults(), "\n"))

	result, err := p.gw.Run(ctx, planUpdateSystemPrompt, user)
	if err != nil {
		return PlanUpdateResult{}, err
	}
	l.AppendTrajectory("planner.plan_update", result.RawInteraction)

	choice, ok := protocol.ParsePlanUpdateChoice(result.FinalOutput)
	if !ok {
		return PlanUpdateResult{}, &protocol.ParseError{Role: "planner.plan_update", Reason: "unrecognized <choice> value"}
	}

	if choice != protocol.ChoiceUpdate {
		return PlanUpdateResult{Choice: choice}, nil
	}

	tail, ok := protocol.ParseUpdatedPlan(result.FinalOutput)
	if !ok || len(tail) == 0 {
		return PlanUpdateResult{Choice: protocol.ChoiceContinue}, nil
	}

	l.ReplacePlanTail(cursorSubtaskID, tail)
	p.budget--
	return PlanUpdateResult{Choice: protocol.ChoiceUpdate}, nil
}

// ReflectOnFailure produces a free-form failure analysis and writes it to
// ledger.failure_info, seeding the next PlanTask call as a replan.
func (p *Planner) ReflectOnFailure(ctx context.Context, l *ledger.Ledger, extraContext string) error {
	user := fmt.Sprintf("Overall task:\n%s\n\nTrajectory so far:\n%s",
		l.OverallTask, formatTrajectory(l.Trajectory))
	if extraContext != "" {
		user += "\n\nAdditional context:\n" + extraContext
	}

	result, err := p.gw.Run(ctx, reflectSystemPrompt, user)
	if err != nil {
		return err
	}
	l.AppendTrajectory("planner.reflect_on_failure", result.RawInteraction)
	l.SetFailureInfo(result.FinalOutput)
	return nil
}

func subtaskByID(l *ledger.Ledger, id int) *ledger.Subtask {
	for _, st := range l.Plan {
		if st.ID == id {
			return st
		}
	}
	return nil
}

func formatTrajectory(entries []ledger.TrajectoryEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", e.ActorLabel, e.RawInteraction)
	}
	return b.String()
}

const initialPlanSystemPrompt = `You are the planning role in a task-orchestration engine.
Break the overall task into an ordered list of subtasks, each wrapped in <task>...</task> tags.
If useful for executors that haven't seen this task before, include one <helpful_experience_or_fact>...</helpful_experience_or_fact> tag.
Emit nothing else.`

const replanSystemPrompt = `You are the planning role in a task-orchestration engine, replanning after a failure.
Read the failure analysis, then produce a fresh ordered list of subtasks wrapped in <task>...</task> tags that avoids the prior failure mode.
Optionally include <helpful_experience_or_fact>...</helpful_experience_or_fact> with a distilled lesson for the executors.
Emit nothing else.`

const planCheckSystemPrompt = `You are the planning role classifying a just-finished subtask.
Read the result and emit exactly one <task_status>success</task_status>, <task_status>partial_success</task_status>, or <task_status>failed</task_status>.`

const planUpdateSystemPrompt = `You are the planning role deciding whether to revise the remaining plan.
Emit <choice>continue</choice>, <choice>update</choice>, or <choice>early_completion</choice>.
If update, also emit <updated_unfinished_task_plan> containing the replacement remaining subtasks as <task>...</task> entries.`

const reflectSystemPrompt = `You are the planning role reflecting on why the run did not yet succeed.
Write a concise failure analysis that a replanning pass can act on.`
