package queue

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestParseMessageRoundTrip(t *testing.T) {
	meta := map[string]string{"project": "group/repo", "issue_iid": "42"}
	original := Message{
		InputText:  "fix the flaky test",
		TraceID:    "trace-123",
		Source:     "gitlab",
		SourceMeta: meta,
	}

	xmsg := redis.XMessage{ID: "1-0", Values: messageValues(original, 2)}

	parsed, err := ParseMessage(xmsg)
	if err != nil {
		t.Fatalf("ParseMessage returned error: %v", err)
	}

	if parsed.ID != "1-0" {
		t.Errorf("ID = %q, want %q", parsed.ID, "1-0")
	}
	if parsed.InputText != original.InputText {
		t.Errorf("InputText = %q, want %q", parsed.InputText, original.InputText)
	}
	if parsed.TraceID != original.TraceID {
		t.Errorf("TraceID = %q, want %q", parsed.TraceID, original.TraceID)
	}
	if parsed.Source != original.Source {
		t.Errorf("Source = %q, want %q", parsed.Source, original.Source)
	}
	if parsed.Attempt != 2 {
		t.Errorf("Attempt = %d, want 2", parsed.Attempt)
	}
	if parsed.SourceMeta["project"] != "group/repo" || parsed.SourceMeta["issue_iid"] != "42" {
		t.Errorf("SourceMeta = %v, want %v", parsed.SourceMeta, meta)
	}
}

func TestParseMessageMissingInputTextErrors(t *testing.T) {
	xmsg := redis.XMessage{ID: "1-0", Values: map[string]any{"trace_id": "trace-123"}}

	if _, err := ParseMessage(xmsg); err == nil {
		t.Error("ParseMessage with no input_text succeeded, want error")
	}
}

func TestParseMessageDefaultsAttemptToOne(t *testing.T) {
	xmsg := redis.XMessage{ID: "1-0", Values: map[string]any{"input_text": "do it"}}

	parsed, err := ParseMessage(xmsg)
	if err != nil {
		t.Fatalf("ParseMessage returned error: %v", err)
	}
	if parsed.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1 (default)", parsed.Attempt)
	}
}
