package tools

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeOutput(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantOutput string
		wantCount  int
	}{
		{"no escapes", "plain output", "plain output", 0},
		{"strips color code", "\x1b[31mred text\x1b[0m", "red text", 2},
		{"strips multiple sequences", "\x1b[1mbold\x1b[0m \x1b[32mgreen\x1b[0m", "bold green", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotOutput, gotCount := SanitizeOutput(tt.input)
			if gotOutput != tt.wantOutput {
				t.Errorf("output = %q, want %q", gotOutput, tt.wantOutput)
			}
			if gotCount != tt.wantCount {
				t.Errorf("count = %d, want %d", gotCount, tt.wantCount)
			}
		})
	}
}

func TestWorkspaceResolveRejectsEscape(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), "run1")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	if _, err := ws.Resolve("../outside.txt"); err == nil {
		t.Error("Resolve(\"../outside.txt\") succeeded, want escape error")
	}
	if _, err := ws.Resolve("../../etc/passwd"); err == nil {
		t.Error("Resolve with repeated traversal succeeded, want escape error")
	}
}

func TestWorkspaceResolveAllowsWithinRoot(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), "run1")
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	resolved, err := ws.Resolve("sub/file.txt")
	if err != nil {
		t.Fatalf("Resolve(\"sub/file.txt\") returned error: %v", err)
	}
	if !strings.HasPrefix(resolved, ws.Root) {
		t.Errorf("resolved path %q not rooted at workspace %q", resolved, ws.Root)
	}
	if want := filepath.Join(ws.Root, "sub", "file.txt"); resolved != want {
		t.Errorf("resolved = %q, want %q", resolved, want)
	}

	rootOnly, err := ws.Resolve(".")
	if err != nil {
		t.Fatalf("Resolve(\".\") returned error: %v", err)
	}
	if rootOnly != filepath.Clean(ws.Root) {
		t.Errorf("Resolve(\".\") = %q, want workspace root %q", rootOnly, ws.Root)
	}
}
