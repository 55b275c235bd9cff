// Package assigner implements the Assigner role: chooses which executor
// handles the next not_started subtask, or short-circuits it with a direct
// answer.
package assigner

import (
	"context"
	"fmt"

	"taskforge.dev/engine/internal/gateway"
	"taskforge.dev/engine/internal/ledger"
	"taskforge.dev/engine/internal/protocol"
)

// AssignmentError is raised when the model selects an executor name that is
// not in the registry. The subtask is left not_started; the Orchestrator
// treats this as a reflection trigger.
type AssignmentError struct {
	SelectedAgent string
}

func (e *AssignmentError) Error() string {
	return fmt.Sprintf("assigner: unknown executor %q", e.SelectedAgent)
}

// Assigner drives the assign operation against a Gateway.
type Assigner struct {
	gw gateway.Gateway
}

// New builds an Assigner.
func New(gw gateway.Gateway) *Assigner {
	return &Assigner{gw: gw}
}

// Assign reads the next not_started subtask and asks the model to choose a
// mode, executor, and task body. On DIRECT_ANSWER, the Ledger is updated
// in-place (status=success, result=result_detailed=direct_answer) and the
// returned subtask requires no Executor dispatch. On ASSIGN_AGENT with an
// unknown executor, it returns *AssignmentError and leaves the subtask
// not_started.
func (a *Assigner) Assign(ctx context.Context, l *ledger.Ledger) (*ledger.Subtask, error) {
	st := l.NextNotStarted()
	if st == nil {
		return nil, fmt.Errorf("assigner: no not_started subtask")
	}

	user := fmt.Sprintf("Overall task:\n%s\n\nNext subtask:\n%d. %s\n\nExecutors:\n%s",
		l.OverallTask, st.ID, st.Name, l.ExecutorsInfo())
	if l.ExperienceFromFailure != "" {
		user += "\n\nLesson from a prior attempt:\n" + l.ExperienceFromFailure
	}

	result, err := a.gw.Run(ctx, assignSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	l.AppendTrajectory("assigner.assign", result.RawInteraction)

	parsed, err := protocol.ParseAssign(result.FinalOutput)
	if err != nil {
		return nil, err
	}

	st.AssignedAgent = parsed.SelectedAgent

	switch parsed.Mode {
	case ledger.ModeDirectAnswer:
		l.SetDirectAnswer(st.ID, parsed.DirectAnswer)
	case ledger.ModeAssignAgent:
		if !l.HasExecutor(parsed.SelectedAgent) {
			return nil, &AssignmentError{SelectedAgent: parsed.SelectedAgent}
		}
		st.Mode = ledger.ModeAssignAgent
		st.Description = parsed.TaskDescription
	}

	return st, nil
}

const assignSystemPrompt = `You are the assignment role in a task-orchestration engine.
Choose which executor should handle the next subtask, or answer it directly if no executor is needed.
Emit <mode>ASSIGN_AGENT</mode> or <mode>DIRECT_ANSWER</mode>, then <selected_agent>NAME</selected_agent>.
If ASSIGN_AGENT, also emit <detailed_task_description>...</detailed_task_description> with full instructions for that executor.
If DIRECT_ANSWER, also emit <direct_answer>...</direct_answer> with the complete answer.`
