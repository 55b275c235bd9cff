package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// ansiEscape matches terminal escape sequences in captured sandbox output,
// adapted from the gap-marker stripping idiom in the teacher's
// SanitizeComment — here applied to ANSI color/cursor codes instead.
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// SanitizeOutput strips ANSI escape sequences from captured tool output and
// reports how many were removed.
func SanitizeOutput(output string) (string, int) {
	matches := ansiEscape.FindAllStringIndex(output, -1)
	if len(matches) == 0 {
		return output, 0
	}
	return ansiEscape.ReplaceAllString(output, ""), len(matches)
}

// Workspace confines sandboxed tools to one run's working directory.
type Workspace struct {
	Root string
}

// NewWorkspace creates (if needed) and returns the confinement root
// parentDir/runLabel. The root is unique to one run only when runLabel is:
// cmd/cli passes "<unix-seconds>_<trace id>", while cmd/server and
// cmd/worker each pass one fixed label that every run they serve shares.
func NewWorkspace(parentDir, runLabel string) (*Workspace, error) {
	root := filepath.Join(parentDir, runLabel)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace %s: %w", root, err)
	}
	return &Workspace{Root: root}, nil
}

// Resolve joins a tool-supplied relative path onto the workspace root and
// rejects any path that would escape it.
func (w *Workspace) Resolve(relPath string) (string, error) {
	joined := filepath.Join(w.Root, relPath)
	cleanRoot := filepath.Clean(w.Root)
	if joined != cleanRoot && !isWithin(cleanRoot, joined) {
		return "", fmt.Errorf("path %q escapes workspace", relPath)
	}
	return joined, nil
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.'
}
