// Package orchestrator implements the top-level state machine: a bounded
// outer reflection loop around an inner plan→assign→execute→check→update
// loop, followed by a two-stage quality gate.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"taskforge.dev/engine/internal/answerer"
	"taskforge.dev/engine/internal/assigner"
	"taskforge.dev/engine/internal/executor"
	"taskforge.dev/engine/internal/ledger"
	"taskforge.dev/engine/internal/planner"
	"taskforge.dev/engine/internal/protocol"
)

// defaultMaxReflection bounds the outer reflection loop: plan_task is called
// at most defaultMaxReflection+1 times in a run.
const defaultMaxReflection = 1

// Orchestrator wires the four roles together and drives a single run.
type Orchestrator struct {
	Planner       *planner.Planner
	Assigner      *assigner.Assigner
	Answerer      *answerer.Answerer
	Executors     map[string]*executor.Executor
	MaxReflection int
}

// New builds an Orchestrator with the default reflection bound.
func New(pl *planner.Planner, as *assigner.Assigner, an *answerer.Answerer, executors map[string]*executor.Executor) *Orchestrator {
	return &Orchestrator{
		Planner:       pl,
		Assigner:      as,
		Answerer:      an,
		Executors:     executors,
		MaxReflection: defaultMaxReflection,
	}
}

// Run drives one complete orchestration over inputText, returning the
// finished Ledger. traceID is carried only for the caller's own correlation
// (logging, RunRecord persistence) — the orchestrator itself does not
// interpret it.
func (o *Orchestrator) Run(ctx context.Context, inputText string, traceID string) (*ledger.Ledger, error) {
	descriptors := make([]ledger.ExecutorDescriptor, 0, len(o.Executors))
	for _, ex := range o.Executors {
		descriptors = append(descriptors, ex.Descriptor)
	}

	l := ledger.New(inputText, descriptors)
	maxReflection := o.MaxReflection
	if maxReflection <= 0 {
		maxReflection = defaultMaxReflection
	}

	reflection := 0

outer:
	for {
		if err := o.Planner.PlanTask(ctx, l); err != nil {
			return l, fmt.Errorf("orchestrator: plan_task: %w", err)
		}

		if err := o.innerLoop(ctx, l); err != nil {
			if o.isReflectable(err) && reflection < maxReflection {
				reflection++
				if reflectErr := o.Planner.ReflectOnFailure(ctx, l, err.Error()); reflectErr != nil {
					return l, fmt.Errorf("orchestrator: reflect_on_failure: %w", reflectErr)
				}
				continue outer
			}
			return l, fmt.Errorf("orchestrator: inner loop: %w", err)
		}

		if reflection >= maxReflection {
			break outer
		}

		if l.HasFailedTask() {
			reflection++
			if err := o.Planner.ReflectOnFailure(ctx, l, ""); err != nil {
				return l, fmt.Errorf("orchestrator: reflect_on_failure: %w", err)
			}
			continue outer
		}

		if err := o.Answerer.ExtractFinalAnswer(ctx, l); err != nil {
			return l, fmt.Errorf("orchestrator: extract_final_answer: %w", err)
		}

		if ok, why := l.CheckTentativeAnswerQuality(); !ok {
			reflection++
			if err := o.Planner.ReflectOnFailure(ctx, l, "answer quality gate failed: "+why); err != nil {
				return l, fmt.Errorf("orchestrator: reflect_on_failure: %w", err)
			}
			continue outer
		}

		passed, analysis, err := o.Answerer.SelfCheck(ctx, l)
		if err != nil {
			return l, fmt.Errorf("orchestrator: self_check: %w", err)
		}
		if !passed {
			reflection++
			if err := o.Planner.ReflectOnFailure(ctx, l, "self-check rejected the answer: "+analysis); err != nil {
				return l, fmt.Errorf("orchestrator: reflect_on_failure: %w", err)
			}
			continue outer
		}

		l.SetFinalOutput(l.TentativeAnswer)
		break outer
	}

	// Fallback finalization: Go has no equivalent to a for...else clause, so
	// this explicit post-loop step covers the case where the outer loop
	// exhausted its reflection budget without ever passing the gate.
	if l.FinalOutput == "" {
		l.SetFinalOutput(l.TentativeAnswer)
	}

	return l, nil
}

// reflectableError marks an inner-loop failure the outer loop should treat
// as a reflection trigger (AssignmentError) rather than a fatal run error.
type reflectableError struct{ err error }

func (r *reflectableError) Error() string { return r.err.Error() }
func (r *reflectableError) Unwrap() error { return r.err }

func (o *Orchestrator) isReflectable(err error) bool {
	var re *reflectableError
	return errors.As(err, &re)
}

// innerLoop runs while exists subtask with status=not_started, dispatching
// through the Assigner, Executor, and Planner.plan_check, then deciding
// whether to continue/update/stop via Planner.plan_update. plan_update is
// never called once the tail is empty.
func (o *Orchestrator) innerLoop(ctx context.Context, l *ledger.Ledger) error {
	for l.HasNotStarted() {
		st, err := o.Assigner.Assign(ctx, l)
		if err != nil {
			var assignErr *assigner.AssignmentError
			if errors.As(err, &assignErr) {
				return &reflectableError{err: err}
			}
			var parseErr *protocol.ParseError
			if errors.As(err, &parseErr) {
				return err
			}
			return err
		}

		if st.Mode != ledger.ModeDirectAnswer {
			ex, ok := o.Executors[st.AssignedAgent]
			if !ok {
				return &reflectableError{err: fmt.Errorf("executor %q not registered", st.AssignedAgent)}
			}
			if err := ex.Execute(ctx, l, st); err != nil {
				return err
			}
			if err := o.Planner.PlanCheck(ctx, l, st.ID); err != nil {
				return err
			}
		}

		if !l.HasNotStarted() {
			break
		}

		update, err := o.Planner.PlanUpdate(ctx, l, st.ID)
		if err != nil {
			return err
		}
		if update.Choice == protocol.ChoiceEarlyCompletion {
			break
		}
		// continue / update: loop
	}
	return nil
}
