// Package queue implements the Redis Streams transport that carries a run
// request from submission (the HTTP API in async mode) to a
// worker process that drives internal/orchestrator. Adapted from the
// teacher's event-stream queue: the XADD/XREADGROUP/XACK mechanics and the
// attempt/requeue/DLQ bookkeeping are unchanged, but the payload is
// collapsed from the teacher's several issue-pipeline task types down to a
// single RunTask carrying the orchestration input text.
package queue

// StreamName is the default Redis stream carrying run requests.
const StreamName = "engine-runs"

// RunTask is the payload enqueued for one orchestration run.
type RunTask struct {
	InputText  string
	TraceID    string
	Source     string // "http", "cli", "gitlab", etc. — logged and stored on the run record
	Attempt    int
	SourceMeta map[string]string // adapter-specific correlation data (e.g. gitlab project/issue IID)
}
