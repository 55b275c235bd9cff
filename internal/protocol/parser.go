// Package protocol implements the tagged-text wire format every role emits
// instead of structured function-calling: Planner/Assigner/Answerer outputs
// are plain text containing angle-bracketed tags, matched with a non-greedy
// dot-matches-newline regex on the literal tag name. Parsing is total — it
// never panics — and falls back to the documented defaults for every
// ambiguity except the few cases enumerated as protocol.ParseError.
package protocol

import (
	"regexp"
	"strings"

	"taskforge.dev/engine/internal/ledger"
)

var (
	taskPattern          = regexp.MustCompile(`(?s)<task>(.*?)</task>`)
	experiencePattern    = regexp.MustCompile(`(?s)<helpful_experience_or_fact>(.*?)</helpful_experience_or_fact>`)
	choicePattern        = regexp.MustCompile(`(?s)<choice>(.*?)</choice>`)
	updatedPlanPattern   = regexp.MustCompile(`(?s)<updated_unfinished_task_plan>(.*?)</updated_unfinished_task_plan>`)
	updatedTaskPattern   = regexp.MustCompile(`(?s)<task(?:_id:\d+[^>]*)?>([^<]*?)</task(?:_id:\d+[^>]*)?>`)
	taskStatusPattern    = regexp.MustCompile(`(?s)<task_status>(.*?)</task_status>`)
	modePattern          = regexp.MustCompile(`(?s)<mode>(.*?)</mode>`)
	selectedAgentPattern = regexp.MustCompile(`(?s)<selected_agent>(.*?)</selected_agent>`)
	directAnswerPattern  = regexp.MustCompile(`(?s)<direct_answer>(.*?)</direct_answer>`)
	taskDescPattern      = regexp.MustCompile(`(?s)<detailed_task_description>(.*?)</detailed_task_description>`)
	answerPattern        = regexp.MustCompile(`(?s)<answer>(.*?)</answer>`)
	confidencePattern    = regexp.MustCompile(`(?s)<confidence>(.*?)</confidence>`)
	uniquenessPattern    = regexp.MustCompile(`(?s)<answer_uniqueness>(.*?)</answer_uniqueness>`)
	correctPattern       = regexp.MustCompile(`(?s)<correct>(.*?)</correct>`)
)

// ParseTasks extracts an ordered list of <task> bodies, trimmed, dropping
// any that are empty after trimming.
func ParseTasks(text string) []string {
	matches := taskPattern.FindAllStringSubmatch(text, -1)
	tasks := make([]string, 0, len(matches))
	for _, m := range matches {
		if t := strings.TrimSpace(m[1]); t != "" {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// ParseExperience extracts the optional distilled lesson a replan may emit.
func ParseExperience(text string) (experience string, ok bool) {
	m := experiencePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	exp := strings.TrimSpace(m[1])
	return exp, exp != ""
}

// PlanUpdateChoice is the Planner's decision on how to proceed past a just
// finished subtask.
type PlanUpdateChoice string

const (
	ChoiceContinue        PlanUpdateChoice = "continue"
	ChoiceUpdate          PlanUpdateChoice = "update"
	ChoiceEarlyCompletion PlanUpdateChoice = "early_completion"
)

// ParsePlanUpdateChoice returns the parsed <choice>, defaulting to
// ChoiceContinue when the tag is missing. An unrecognized value is reported
// via ok=false; the caller (Planner) turns that into ProtocolParseError.
func ParsePlanUpdateChoice(text string) (choice PlanUpdateChoice, ok bool) {
	m := choicePattern.FindStringSubmatch(text)
	if m == nil {
		return ChoiceContinue, true
	}
	raw := strings.ToLower(strings.TrimSpace(m[1]))
	switch PlanUpdateChoice(raw) {
	case ChoiceContinue, ChoiceUpdate, ChoiceEarlyCompletion:
		return PlanUpdateChoice(raw), true
	default:
		return "", false
	}
}

// ParseUpdatedPlan extracts the replacement tail tasks out of a
// <updated_unfinished_task_plan> block. Returns ok=false if the wrapper tag
// or any non-empty task body is absent, which the caller coerces to
// ChoiceContinue per the plan-update policy.
func ParseUpdatedPlan(text string) (tasks []string, ok bool) {
	wrapper := updatedPlanPattern.FindStringSubmatch(text)
	if wrapper == nil {
		return nil, false
	}
	matches := updatedTaskPattern.FindAllStringSubmatch(wrapper[1], -1)
	for _, m := range matches {
		if t := strings.TrimSpace(m[1]); t != "" {
			tasks = append(tasks, t)
		}
	}
	return tasks, len(tasks) > 0
}

// ParseTaskStatus parses <task_status>, coercing any value containing
// "partial" to StatusPartialSucc and defaulting unrecognized or missing
// values to StatusPartialSucc as well.
func ParseTaskStatus(text string) ledger.SubtaskStatus {
	m := taskStatusPattern.FindStringSubmatch(text)
	if m == nil {
		return ledger.StatusPartialSucc
	}
	status := strings.ToLower(strings.TrimSpace(m[1]))
	if strings.Contains(status, "partial") {
		return ledger.StatusPartialSucc
	}
	switch ledger.SubtaskStatus(status) {
	case ledger.StatusSuccess, ledger.StatusFailed, ledger.StatusPartialSucc:
		return ledger.SubtaskStatus(status)
	default:
		return ledger.StatusPartialSucc
	}
}

// AssignResult is the parsed output of the Assigner's assignment response.
type AssignResult struct {
	Mode            ledger.SubtaskMode
	SelectedAgent   string
	TaskDescription string
	DirectAnswer    string
}

// ParseAssign parses the Assigner's <mode>/<selected_agent>/(<detailed_task_
// description>|<direct_answer>) response. Unlike the other parsers, there is
// no safe default here: a missing mode, agent, or (depending on mode) body
// tag is a malformed response with no documented fallback, so it returns
// ProtocolParseError.
func ParseAssign(text string) (AssignResult, error) {
	modeMatch := modePattern.FindStringSubmatch(text)
	if modeMatch == nil {
		return AssignResult{}, &ParseError{Role: "assigner", Reason: "missing <mode> tag"}
	}
	mode := ledger.SubtaskMode(strings.ToUpper(strings.TrimSpace(modeMatch[1])))
	if mode != ledger.ModeAssignAgent && mode != ledger.ModeDirectAnswer {
		return AssignResult{}, &ParseError{Role: "assigner", Reason: "unrecognized <mode> value"}
	}

	agentMatch := selectedAgentPattern.FindStringSubmatch(text)
	if agentMatch == nil {
		return AssignResult{}, &ParseError{Role: "assigner", Reason: "missing <selected_agent> tag"}
	}
	agent := strings.TrimSpace(agentMatch[1])

	result := AssignResult{Mode: mode, SelectedAgent: agent}

	if mode == ledger.ModeDirectAnswer {
		m := directAnswerPattern.FindStringSubmatch(text)
		if m == nil {
			return AssignResult{}, &ParseError{Role: "assigner", Reason: "DIRECT_ANSWER mode with no <direct_answer> tag"}
		}
		result.DirectAnswer = strings.TrimSpace(m[1])
		return result, nil
	}

	m := taskDescPattern.FindStringSubmatch(text)
	if m == nil {
		return AssignResult{}, &ParseError{Role: "assigner", Reason: "ASSIGN_AGENT mode with no <detailed_task_description> tag"}
	}
	result.TaskDescription = strings.TrimSpace(m[1])
	return result, nil
}

// ParseAnswer parses the Answerer's <answer>/<confidence>/<answer_uniqueness>
// response. Missing <answer> falls back to the full response text; missing
// or unrecognized confidence defaults to low; missing or unrecognized
// uniqueness defaults to unclear. Matching tolerates sentence framing around
// the tag body (leading/trailing words), not just an exact value.
func ParseAnswer(text string) (answer string, confidence ledger.Confidence, uniqueness ledger.Uniqueness) {
	if m := answerPattern.FindStringSubmatch(text); m != nil {
		answer = strings.TrimSpace(m[1])
	} else {
		answer = strings.TrimSpace(text)
	}

	confidence = ledger.ConfidenceLow
	if m := confidencePattern.FindStringSubmatch(text); m != nil {
		body := strings.ToLower(strings.TrimSpace(m[1]))
		switch {
		case containsWord(body, "high"):
			confidence = ledger.ConfidenceHigh
		case containsWord(body, "medium"):
			confidence = ledger.ConfidenceMedium
		}
	}

	uniqueness = ledger.UniquenessUnclear
	if m := uniquenessPattern.FindStringSubmatch(text); m != nil {
		body := strings.ToLower(strings.TrimSpace(m[1]))
		switch {
		// Checked in this order deliberately: "non-unique" contains "unique"
		// as a suffix, so testing for the longer phrase first avoids
		// misreading a non-unique verdict as unique.
		case containsWord(body, "non-unique"), containsWord(body, "non_unique"):
			uniqueness = ledger.UniquenessNonUnique
		case containsWord(body, "unique"):
			uniqueness = ledger.UniquenessUnique
		}
	}

	return answer, confidence, uniqueness
}

// containsWord reports whether phrase appears in s as a whole token: at the
// start, at the end, or surrounded by whitespace — tolerating a sentence
// wrapped around the tagged value without matching an unrelated substring.
func containsWord(s, phrase string) bool {
	return strings.HasPrefix(s, phrase) ||
		strings.HasSuffix(s, phrase) ||
		strings.Contains(s, " "+phrase+" ")
}

// ParseSelfCheck parses <correct>yes|no</correct>, defaulting to false when
// the tag is absent.
func ParseSelfCheck(text string) bool {
	m := correctPattern.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	return strings.ToLower(strings.TrimSpace(m[1])) == "yes"
}
