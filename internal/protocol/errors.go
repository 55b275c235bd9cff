package protocol

import "fmt"

// ParseError is returned only for the malformed-output cases the
// specification enumerates as having no safe default — e.g. an Assigner
// response with neither a detailed_task_description nor a direct_answer.
// Every other ambiguity has a documented default and never reaches here.
type ParseError struct {
	Role   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("protocol: %s: %s", e.Role, e.Reason)
}
