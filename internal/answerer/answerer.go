// Package answerer implements the Answerer role: extracts a final answer
// with confidence/uniqueness tags from the finished plan, then self-checks
// it against the trajectory.
package answerer

import (
	"context"
	"fmt"
	"strings"

	"taskforge.dev/engine/internal/gateway"
	"taskforge.dev/engine/internal/ledger"
	"taskforge.dev/engine/internal/protocol"
)

// Answerer drives extract_final_answer/self_check against a Gateway.
type Answerer struct {
	gw gateway.Gateway
}

// New builds an Answerer.
func New(gw gateway.Gateway) *Answerer {
	return &Answerer{gw: gw}
}

// ExtractFinalAnswer reads the overall task and the formatted subtask
// results, and writes a tentative answer (with confidence and uniqueness)
// onto the Ledger.
func (a *Answerer) ExtractFinalAnswer(ctx context.Context, l *ledger.Ledger) error {
	user := fmt.Sprintf("Overall task:\n%s\n\nSubtask results:\n%s",
		l.OverallTask, strings.Join(l.FormattedPlanWithResults(), "\n"))

	result, err := a.gw.Run(ctx, extractSystemPrompt, user)
	if err != nil {
		return err
	}
	l.AppendTrajectory("answerer.extract_final_answer", result.RawInteraction)

	answer, confidence, uniqueness := protocol.ParseAnswer(result.FinalOutput)
	l.SetTentativeAnswer(answer, confidence, uniqueness)
	return nil
}

// SelfCheck asks the model to verify the tentative answer against the
// trajectory, returning its yes/no verdict and analysis.
func (a *Answerer) SelfCheck(ctx context.Context, l *ledger.Ledger) (passed bool, analysis string, err error) {
	user := fmt.Sprintf("Overall task:\n%s\n\nSubtask results:\n%s\n\nTentative answer:\n%s",
		l.OverallTask, strings.Join(l.FormattedPlanWithResults(), "\n"), l.TentativeAnswer)

	result, err := a.gw.Run(ctx, selfCheckSystemPrompt, user)
	if err != nil {
		return false, "", err
	}
	l.AppendTrajectory("answerer.self_check", result.RawInteraction)

	passed = protocol.ParseSelfCheck(result.FinalOutput)
	return passed, result.FinalOutput, nil
}

const extractSystemPrompt = `You are the answering role in a task-orchestration engine.
Read the subtask results and produce the final answer.
Emit <answer>...</answer>, <confidence>high|medium|low</confidence>, and <answer_uniqueness>unique|non-unique|unclear</answer_uniqueness>.`

const selfCheckSystemPrompt = `You are the answering role self-checking a tentative answer against the subtask results.
Emit <correct>yes</correct> or <correct>no</correct>, with a brief analysis explaining the verdict.`
