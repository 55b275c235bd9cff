package protocol

import (
	"testing"

	"taskforge.dev/engine/internal/ledger"
)

func TestParseTasks(t *testing.T) {
	text := "<task>research the topic</task>\nsome filler\n<task> write the summary </task>\n<task></task>"
	got := ParseTasks(text)
	want := []string{"research the topic", "write the summary"}

	if len(got) != len(want) {
		t.Fatalf("ParseTasks() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseTasks()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseExperience(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantExp  string
		wantOK   bool
	}{
		{"present and non-empty", "<helpful_experience_or_fact>retry with smaller batches</helpful_experience_or_fact>", "retry with smaller batches", true},
		{"tag present but empty", "<helpful_experience_or_fact>   </helpful_experience_or_fact>", "", false},
		{"tag absent", "no tags here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, ok := ParseExperience(tt.text)
			if exp != tt.wantExp || ok != tt.wantOK {
				t.Errorf("ParseExperience() = (%q, %v), want (%q, %v)", exp, ok, tt.wantExp, tt.wantOK)
			}
		})
	}
}

func TestParsePlanUpdateChoice(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantChoice PlanUpdateChoice
		wantOK     bool
	}{
		{"continue", "<choice>continue</choice>", ChoiceContinue, true},
		{"update", "<choice>Update</choice>", ChoiceUpdate, true},
		{"early completion", "<choice>early_completion</choice>", ChoiceEarlyCompletion, true},
		{"missing tag defaults to continue", "no tag here", ChoiceContinue, true},
		{"unrecognized value", "<choice>abort</choice>", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			choice, ok := ParsePlanUpdateChoice(tt.text)
			if choice != tt.wantChoice || ok != tt.wantOK {
				t.Errorf("ParsePlanUpdateChoice() = (%q, %v), want (%q, %v)", choice, ok, tt.wantChoice, tt.wantOK)
			}
		})
	}
}

func TestParseUpdatedPlan(t *testing.T) {
	text := `<updated_unfinished_task_plan>
<task_id:3>rewrite the failing step</task_id:3>
<task_id:4>re-verify output</task_id:4>
</updated_unfinished_task_plan>`

	tasks, ok := ParseUpdatedPlan(text)
	if !ok {
		t.Fatal("ParseUpdatedPlan() ok = false, want true")
	}
	want := []string{"rewrite the failing step", "re-verify output"}
	if len(tasks) != len(want) {
		t.Fatalf("tasks = %v, want %v", tasks, want)
	}
	for i := range want {
		if tasks[i] != want[i] {
			t.Errorf("tasks[%d] = %q, want %q", i, tasks[i], want[i])
		}
	}
}

func TestParseUpdatedPlanMissingWrapper(t *testing.T) {
	if _, ok := ParseUpdatedPlan("no wrapper tag here"); ok {
		t.Error("ParseUpdatedPlan() ok = true with no wrapper tag, want false")
	}
}

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		name string
		text string
		want ledger.SubtaskStatus
	}{
		{"success", "<task_status>success</task_status>", ledger.StatusSuccess},
		{"failed", "<task_status>failed</task_status>", ledger.StatusFailed},
		{"explicit partial", "<task_status>partial_success</task_status>", ledger.StatusPartialSucc},
		{"contains partial coerces", "<task_status>Partially done</task_status>", ledger.StatusPartialSucc},
		{"unrecognized value defaults to partial", "<task_status>what</task_status>", ledger.StatusPartialSucc},
		{"missing tag defaults to partial", "no status tag", ledger.StatusPartialSucc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTaskStatus(tt.text); got != tt.want {
				t.Errorf("ParseTaskStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseAssignDirectAnswer(t *testing.T) {
	text := `<mode>DIRECT_ANSWER</mode>
<selected_agent>none</selected_agent>
<direct_answer>42</direct_answer>`

	result, err := ParseAssign(text)
	if err != nil {
		t.Fatalf("ParseAssign() error = %v", err)
	}
	if result.Mode != ledger.ModeDirectAnswer {
		t.Errorf("Mode = %q, want %q", result.Mode, ledger.ModeDirectAnswer)
	}
	if result.DirectAnswer != "42" {
		t.Errorf("DirectAnswer = %q, want %q", result.DirectAnswer, "42")
	}
}

func TestParseAssignAssignAgent(t *testing.T) {
	text := `<mode>assign_agent</mode>
<selected_agent>general</selected_agent>
<detailed_task_description>grep the logs for errors</detailed_task_description>`

	result, err := ParseAssign(text)
	if err != nil {
		t.Fatalf("ParseAssign() error = %v", err)
	}
	if result.Mode != ledger.ModeAssignAgent {
		t.Errorf("Mode = %q, want %q", result.Mode, ledger.ModeAssignAgent)
	}
	if result.SelectedAgent != "general" {
		t.Errorf("SelectedAgent = %q, want %q", result.SelectedAgent, "general")
	}
	if result.TaskDescription != "grep the logs for errors" {
		t.Errorf("TaskDescription = %q, want %q", result.TaskDescription, "grep the logs for errors")
	}
}

func TestParseAssignErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing mode tag", "<selected_agent>general</selected_agent>"},
		{"unrecognized mode value", "<mode>MAYBE</mode><selected_agent>general</selected_agent>"},
		{"missing selected_agent tag", "<mode>ASSIGN_AGENT</mode>"},
		{"assign_agent missing task description", "<mode>ASSIGN_AGENT</mode><selected_agent>general</selected_agent>"},
		{"direct_answer missing answer body", "<mode>DIRECT_ANSWER</mode><selected_agent>none</selected_agent>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAssign(tt.text); err == nil {
				t.Error("ParseAssign() error = nil, want a ParseError")
			}
		})
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		wantAnswer     string
		wantConfidence ledger.Confidence
		wantUniqueness ledger.Uniqueness
	}{
		{
			name:           "full tagged response",
			text:           "<answer>42</answer>\n<confidence>high</confidence>\n<answer_uniqueness>unique</answer_uniqueness>",
			wantAnswer:     "42",
			wantConfidence: ledger.ConfidenceHigh,
			wantUniqueness: ledger.UniquenessUnique,
		},
		{
			name:           "confidence sentence-wrapped",
			text:           "<answer>42</answer>\n<confidence>I am medium confident</confidence>\n<answer_uniqueness>unique</answer_uniqueness>",
			wantAnswer:     "42",
			wantConfidence: ledger.ConfidenceMedium,
			wantUniqueness: ledger.UniquenessUnique,
		},
		{
			name:           "non-unique not misread as unique",
			text:           "<answer>42</answer>\n<confidence>high</confidence>\n<answer_uniqueness>this is non-unique</answer_uniqueness>",
			wantAnswer:     "42",
			wantConfidence: ledger.ConfidenceHigh,
			wantUniqueness: ledger.UniquenessNonUnique,
		},
		{
			name:           "missing answer tag falls back to full text",
			text:           "just the raw model output",
			wantAnswer:     "just the raw model output",
			wantConfidence: ledger.ConfidenceLow,
			wantUniqueness: ledger.UniquenessUnclear,
		},
		{
			name:           "unrecognized confidence defaults low",
			text:           "<answer>42</answer><confidence>sort of</confidence>",
			wantAnswer:     "42",
			wantConfidence: ledger.ConfidenceLow,
			wantUniqueness: ledger.UniquenessUnclear,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, confidence, uniqueness := ParseAnswer(tt.text)
			if answer != tt.wantAnswer {
				t.Errorf("answer = %q, want %q", answer, tt.wantAnswer)
			}
			if confidence != tt.wantConfidence {
				t.Errorf("confidence = %q, want %q", confidence, tt.wantConfidence)
			}
			if uniqueness != tt.wantUniqueness {
				t.Errorf("uniqueness = %q, want %q", uniqueness, tt.wantUniqueness)
			}
		})
	}
}

func TestParseSelfCheck(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"yes", "<correct>yes</correct>", true},
		{"YES uppercase", "<correct>YES</correct>", true},
		{"no", "<correct>no</correct>", false},
		{"missing tag defaults false", "no tag", false},
		{"unrecognized value defaults false", "<correct>maybe</correct>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseSelfCheck(tt.text); got != tt.want {
				t.Errorf("ParseSelfCheck() = %v, want %v", got, tt.want)
			}
		})
	}
}
