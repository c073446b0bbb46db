package core

import "testing"

// Event constructor & helper method tests
func TestEvent_ConstructorsAndMethods(t *testing.T) {
	e := NewEvent("run-123", "authorA")
	if e.Author != "authorA" || e.RunID != "run-123" || e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("NewEvent did not initialize fields correctly: %+v", e)
	}

	msg := NewMessageEvent("run-1", "Backend Architect", "hello world")
	if msg.Content == nil || msg.Content.Role != RoleAssistant || len(msg.Content.Parts) != 1 {
		t.Fatalf("NewMessageEvent malformed: %+v", msg)
	}
	if msg.Text() != "hello world" || msg.IsError() {
		t.Fatalf("unexpected message event text/error state: %+v", msg)
	}

	user := NewUserMessageEvent("run-1", "hi")
	if user.Content == nil || user.Content.Role != RoleUser || user.Author != RoleUser {
		t.Fatalf("NewUserMessageEvent malformed: %+v", user)
	}

	failed := NewErrorEvent("run-1", "Error", ErrorCodeUpstream, "Error: boom")
	if !failed.IsError() || *failed.ErrorCode != ErrorCodeUpstream || failed.Text() != "Error: boom" {
		t.Fatalf("NewErrorEvent malformed: %+v", failed)
	}
}

func TestEvent_TextWithoutContent(t *testing.T) {
	if got := NewEvent("run", "x").Text(); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestContent_TextConcatenatesParts(t *testing.T) {
	c := Content{Role: RoleUser, Parts: []Part{TextPart{Text: "what is "}, TextPart{Text: "a database?"}}}
	if got := c.Text(); got != "what is a database?" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestNewID_Unique(t *testing.T) {
	if NewID() == NewID() {
		t.Fatal("expected unique ids")
	}
}
