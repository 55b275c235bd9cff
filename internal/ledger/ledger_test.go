package ledger

import "testing"

func TestSetPlanAssignsSequentialIDs(t *testing.T) {
	l := New("do the thing", nil)
	l.SetPlan([]string{"first", "second", "third"})

	if len(l.Plan) != 3 {
		t.Fatalf("len(Plan) = %d, want 3", len(l.Plan))
	}
	for i, st := range l.Plan {
		if st.ID != i+1 {
			t.Errorf("Plan[%d].ID = %d, want %d", i, st.ID, i+1)
		}
		if st.Status != StatusNotStarted {
			t.Errorf("Plan[%d].Status = %s, want %s", i, st.Status, StatusNotStarted)
		}
	}
}

func TestReplacePlanTailPreservesFinishedPrefix(t *testing.T) {
	l := New("overall", nil)
	l.SetPlan([]string{"a", "b", "c"})
	l.SetSubtaskStatus(1, StatusSuccess)
	l.SetSubtaskResult(1, "done", "done in detail")

	l.ReplacePlanTail(1, []string{"d", "e"})

	if len(l.Plan) != 3 {
		t.Fatalf("len(Plan) = %d, want 3", len(l.Plan))
	}
	if l.Plan[0].ID != 1 || l.Plan[0].Status != StatusSuccess || l.Plan[0].Result != "done" {
		t.Errorf("finished prefix not preserved: %+v", l.Plan[0])
	}
	if l.Plan[1].ID != 2 || l.Plan[1].Name != "d" || l.Plan[1].Status != StatusNotStarted {
		t.Errorf("tail not renumbered from cursor: %+v", l.Plan[1])
	}
	if l.Plan[2].ID != 3 || l.Plan[2].Name != "e" {
		t.Errorf("tail not renumbered from cursor: %+v", l.Plan[2])
	}
}

func TestSetSubtaskStatusTerminalMonotonicity(t *testing.T) {
	l := New("overall", nil)
	l.SetPlan([]string{"only"})

	l.SetSubtaskStatus(1, StatusSuccess)
	l.SetSubtaskStatus(1, StatusFailed)

	if l.Plan[0].Status != StatusSuccess {
		t.Errorf("terminal status was overwritten: got %s, want %s", l.Plan[0].Status, StatusSuccess)
	}
}

func TestSetDirectAnswerShortCircuits(t *testing.T) {
	l := New("overall", nil)
	l.SetPlan([]string{"only"})

	l.SetDirectAnswer(1, "42")

	st := l.Plan[0]
	if st.Mode != ModeDirectAnswer {
		t.Errorf("Mode = %s, want %s", st.Mode, ModeDirectAnswer)
	}
	if st.Status != StatusSuccess {
		t.Errorf("Status = %s, want %s", st.Status, StatusSuccess)
	}
	if st.Result != "42" || st.ResultDetailed != "42" || st.DirectAnswer != "42" {
		t.Errorf("Result/ResultDetailed/DirectAnswer not all set to answer: %+v", st)
	}
}

func TestHasNotStartedAndHasFailedTask(t *testing.T) {
	l := New("overall", nil)
	l.SetPlan([]string{"a", "b"})

	if !l.HasNotStarted() {
		t.Error("HasNotStarted() = false, want true before any subtask starts")
	}
	if l.HasFailedTask() {
		t.Error("HasFailedTask() = true, want false before any failure")
	}

	l.SetSubtaskStatus(1, StatusFailed)
	l.SetSubtaskStatus(2, StatusSuccess)

	if l.HasNotStarted() {
		t.Error("HasNotStarted() = true, want false once all subtasks are terminal")
	}
	if !l.HasFailedTask() {
		t.Error("HasFailedTask() = false, want true")
	}
}

func TestCheckTentativeAnswerQuality(t *testing.T) {
	tests := []struct {
		name       string
		confidence Confidence
		uniqueness Uniqueness
		wantOK     bool
		wantReason string
	}{
		{"high confidence unique answer passes", ConfidenceHigh, UniquenessUnique, true, ""},
		{"medium confidence unique answer passes", ConfidenceMedium, UniquenessUnique, true, ""},
		{"low confidence fails", ConfidenceLow, UniquenessUnique, false, "answer confidence too low"},
		{"non-unique answer fails even at high confidence", ConfidenceHigh, UniquenessNonUnique, false, "answer uniqueness insufficient"},
		{"unclear uniqueness passes at high confidence", ConfidenceHigh, UniquenessUnclear, true, ""},
		{"low confidence and non-unique combines both reasons", ConfidenceLow, UniquenessNonUnique, false, "answer confidence too low and answer uniqueness insufficient"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New("overall", nil)
			l.SetTentativeAnswer("candidate", tt.confidence, tt.uniqueness)

			ok, reason := l.CheckTentativeAnswerQuality()
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestHasExecutorAndExecutorNames(t *testing.T) {
	l := New("overall", []ExecutorDescriptor{
		{Name: "general", Description: "general purpose"},
		{Name: "math", Description: "arithmetic"},
	})

	if !l.HasExecutor("general") || !l.HasExecutor("math") {
		t.Error("expected both registered executors to be found")
	}
	if l.HasExecutor("nonexistent") {
		t.Error("HasExecutor(\"nonexistent\") = true, want false")
	}

	names := l.ExecutorNames()
	if len(names) != 2 || names[0] != "general" || names[1] != "math" {
		t.Errorf("ExecutorNames() = %v, want [general math]", names)
	}
}
