package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

const (
	maxGlobResults   = 100
	maxGrepMatches   = 50
	maxReadLines     = 500
	defaultReadLines = 200
	maxLineLength    = 2000
)

// GlobParams locates files by pattern within the workspace.
type GlobParams struct {
	Path    string `json:"path,omitempty" jsonschema:"description=Directory to search in. Defaults to the workspace root."`
	Pattern string `json:"pattern" jsonschema:"required,description=Glob pattern to match files (e.g. '**/*.go', 'data/*.csv')"`
}

// GlobTool finds files by pattern, returning paths sorted by modification
// time (newest first) and capped at maxGlobResults. Grounded on the
// teacher's explore_tools.go GlobParams/maxGlobResults.
type GlobTool struct{ Workspace *Workspace }

func (t *GlobTool) Name() string { return "glob" }
func (t *GlobTool) Description() string {
	return "Find files by glob pattern under the task workspace. " +
		"Returns paths sorted newest-first. Use this to discover files before reading them."
}
func (t *GlobTool) Schema() any {
	return jsonschema.Reflector{DoNotReference: true}.Reflect(&GlobParams{})
}

func (t *GlobTool) Invoke(_ context.Context, argumentsJSON string) (Result, error) {
	var params GlobParams
	if err := json.Unmarshal([]byte(argumentsJSON), &params); err != nil {
		return Result{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	searchDir, err := t.Workspace.Resolve(params.Path)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}

	type match struct {
		path    string
		modTime int64
	}
	var matches []match
	_ = filepath.WalkDir(searchDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(searchDir, path)
		if relErr != nil {
			return nil
		}
		ok, globErr := filepath.Match(params.Pattern, rel)
		if globErr == nil && ok {
			info, infoErr := d.Info()
			if infoErr == nil {
				matches = append(matches, match{path: rel, modTime: info.ModTime().Unix()})
			}
		}
		return nil
	})

	sort.Slice(matches, func(i, j int) bool { return matches[i].modTime > matches[j].modTime })
	if len(matches) > maxGlobResults {
		matches = matches[:maxGlobResults]
	}

	var out strings.Builder
	for _, m := range matches {
		out.WriteString(m.path)
		out.WriteByte('\n')
	}
	if out.Len() == 0 {
		return Result{Output: "no files matched"}, nil
	}
	return Result{Output: out.String()}, nil
}

// GrepParams searches file contents by regex within the workspace.
type GrepParams struct {
	Pattern    string `json:"pattern" jsonschema:"required,description=Regex pattern to search for in file contents"`
	Path       string `json:"path,omitempty" jsonschema:"description=File or directory to search. Defaults to workspace root."`
	IgnoreCase bool   `json:"ignore_case,omitempty" jsonschema:"description=Case insensitive search"`
}

// GrepTool searches file contents with regex, returning matching lines with
// file:line references, capped at maxGrepMatches. Grounded on the teacher's
// explore_tools.go GrepParams/maxGrepMatches.
type GrepTool struct{ Workspace *Workspace }

func (t *GrepTool) Name() string { return "grep" }
func (t *GrepTool) Description() string {
	return "Search file contents under the task workspace with a regex. Returns matching file:line references."
}
func (t *GrepTool) Schema() any {
	return jsonschema.Reflector{DoNotReference: true}.Reflect(&GrepParams{})
}

func (t *GrepTool) Invoke(_ context.Context, argumentsJSON string) (Result, error) {
	var params GrepParams
	if err := json.Unmarshal([]byte(argumentsJSON), &params); err != nil {
		return Result{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	pattern := params.Pattern
	if params.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Result{Error: fmt.Sprintf("invalid regex: %v", err)}, nil
	}
	searchDir, err := t.Workspace.Resolve(params.Path)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}

	var out strings.Builder
	matches := 0
	_ = filepath.WalkDir(searchDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || matches >= maxGrepMatches {
			return nil
		}
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer f.Close()
		rel, _ := filepath.Rel(searchDir, path)
		scanner := bufio.NewScanner(f)
		lineNo := 0
		for scanner.Scan() && matches < maxGrepMatches {
			lineNo++
			if re.MatchString(scanner.Text()) {
				fmt.Fprintf(&out, "%s:%d: %s\n", rel, lineNo, truncateLine(scanner.Text()))
				matches++
			}
		}
		return nil
	})

	if matches == 0 {
		return Result{Output: "no matches"}, nil
	}
	return Result{Output: out.String()}, nil
}

// ReadParams reads a file with an optional line range.
type ReadParams struct {
	FilePath string `json:"file_path" jsonschema:"required,description=Path to the file to read (relative to workspace root)"`
	Offset   int    `json:"offset,omitempty" jsonschema:"description=Line number to start reading from (1-indexed)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"description=Number of lines to read (default 200, max 500)"`
}

// ReadTool reads a file with numbered lines, capped at maxReadLines per call
// and truncating overlong lines. Grounded on the teacher's explore_tools.go
// ReadParams/maxReadLines/defaultReadLines/maxLineLength.
type ReadTool struct{ Workspace *Workspace }

func (t *ReadTool) Name() string        { return "read" }
func (t *ReadTool) Description() string { return "Read a file from the workspace, optionally by line range." }
func (t *ReadTool) Schema() any {
	return jsonschema.Reflector{DoNotReference: true}.Reflect(&ReadParams{})
}

func (t *ReadTool) Invoke(_ context.Context, argumentsJSON string) (Result, error) {
	var params ReadParams
	if err := json.Unmarshal([]byte(argumentsJSON), &params); err != nil {
		return Result{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	path, err := t.Workspace.Resolve(params.FilePath)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{Error: fmt.Sprintf("opening file: %v", err)}, nil
	}
	defer f.Close()

	offset := params.Offset
	if offset < 1 {
		offset = 1
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReadLines
	}
	if limit > maxReadLines {
		limit = maxReadLines
	}

	var out strings.Builder
	scanner := bufio.NewScanner(f)
	lineNo := 0
	collected := 0
	for scanner.Scan() {
		lineNo++
		if lineNo < offset {
			continue
		}
		if collected >= limit {
			break
		}
		fmt.Fprintf(&out, "%6d\t%s\n", lineNo, truncateLine(scanner.Text()))
		collected++
	}
	if collected == 0 {
		return Result{Output: "(empty range)"}, nil
	}
	return Result{Output: out.String()}, nil
}

func truncateLine(line string) string {
	if len(line) > maxLineLength {
		return line[:maxLineLength] + "... (truncated)"
	}
	return line
}
