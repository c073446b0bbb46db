package core

import "testing"

func TestSession_Clone(t *testing.T) {
	s := NewSession("s1")
	s.Metadata["entry"] = "Triage Agent"
	s.AddEvent(NewUserMessageEvent("r1", "hi"))

	clone := s.Clone()
	if clone == s {
		t.Error("Clone should be a different pointer")
	}

	clone.AddEvent(NewMessageEvent("r1", "Frontend Architect", "hello"))
	clone.Metadata["entry"] = "changed"
	if s.Len() != 1 {
		t.Errorf("original should keep 1 event, got %d", s.Len())
	}
	if s.Metadata["entry"] != "Triage Agent" {
		t.Error("original metadata should not change")
	}
}

func TestSession_AddEventAndHistory(t *testing.T) {
	s := NewSession("s2")
	s.AddEvent(NewUserMessageEvent("r1", "hi"))
	s.AddEvent(NewMessageEvent("r1", "Frontend Architect", "hello"))
	s.AddEvent(NewUserMessageEvent("r2", "again"))
	s.AddEvent(NewErrorEvent("r2", "Error", ErrorCodeUpstream, "Error: timeout"))

	all := s.GetEvents()
	if len(all) != 4 {
		t.Fatalf("expected 4 events, got %d", len(all))
	}
	orig := all[0].Author
	all[0].Author = "changed"
	if s.GetEvents()[0].Author != orig {
		t.Error("events slice should be copied on read")
	}

	history := s.GetConversationHistory()
	if len(history) != 3 {
		t.Fatalf("expected error event to be filtered, got %d events", len(history))
	}
	for _, ev := range history {
		if ev.IsError() {
			t.Error("history should not contain error events")
		}
	}
}
