package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

// bannedSubstrings blocks write-sensitive commands a sandboxed bash tool
// must never run unsupervised, adopted from the reference bash sandbox's
// own banned-command list.
var bannedSubstrings = []string{
	"git init",
	"git commit",
	"git add",
	"rm -rf /",
}

const (
	maxBashOutputBytes = 10000
	defaultBashTimeout = 10 * time.Second
)

// BashParams is the JSON Schema-backed argument shape for the bash tool.
type BashParams struct {
	Command string `json:"command" jsonschema:"required,description=Shell command to run in the workspace. Read-only: git log/diff/blame, ls, find, grep, cat are fine; commands containing git init, git commit, git add or rm -rf / are rejected. Other commands are not filtered, and paths outside the workspace are not blocked."`
}

// BashTool runs a shell command with a workspace directory as its working
// directory, under a wallclock timeout, with commands containing one of
// bannedSubstrings rejected and ANSI escapes
// scrubbed from captured output. Grounded on the teacher's
// internal/worker.ExecCommandRunner (process execution shape) and the
// reference bash sandbox's banned-command list and ANSI regex.
type BashTool struct {
	Workspace *Workspace
	Timeout   time.Duration
}

// NewBashTool builds a BashTool confined to ws, defaulting the timeout to
// defaultBashTimeout when unset.
func NewBashTool(ws *Workspace, timeout time.Duration) *BashTool {
	if timeout <= 0 {
		timeout = defaultBashTimeout
	}
	return &BashTool{Workspace: ws, Timeout: timeout}
}

func (t *BashTool) Name() string { return "bash" }

func (t *BashTool) Description() string {
	return "Run a read-only-oriented shell command in the task workspace. " +
		"Output is truncated and ANSI escape sequences are stripped. " +
		"Commands that initialize or mutate git state are rejected."
}

func (t *BashTool) Schema() any {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&BashParams{})
}

func (t *BashTool) Invoke(ctx context.Context, argumentsJSON string) (Result, error) {
	var params BashParams
	if err := json.Unmarshal([]byte(argumentsJSON), &params); err != nil {
		return Result{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}

	for _, banned := range bannedSubstrings {
		if strings.Contains(params.Command, banned) {
			return Result{Error: fmt.Sprintf("command rejected: contains banned operation %q", banned)}, nil
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-c", params.Command)
	cmd.Dir = t.Workspace.Root
	cmd.Env = append(os.Environ(), "PATH=/usr/local/bin:/usr/bin:/bin")

	out, err := cmd.CombinedOutput()
	clean, _ := SanitizeOutput(string(out))
	if len(clean) > maxBashOutputBytes {
		clean = clean[:maxBashOutputBytes] + "\n... (truncated)"
	}

	if runCtx.Err() != nil {
		return Result{Error: fmt.Sprintf("command timed out after %s", t.Timeout)}, nil
	}
	if err != nil {
		return Result{Error: fmt.Sprintf("command failed: %v\noutput:\n%s", err, clean)}, nil
	}
	return Result{Output: clean}, nil
}
