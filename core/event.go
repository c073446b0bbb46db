package core

import (
	"time"

	"github.com/google/uuid"
)

// Error codes attached to events produced from failed exchanges.
const (
	ErrorCodeUpstream  = "upstream_error"
	ErrorCodeGuardrail = "guardrail_tripped"
)

// Event records one side of a chat exchange. After emission it should be
// treated as immutable. It captures:
//   - Correlation (ID, RunID, Author)
//   - Conversational content (role based Parts)
//   - Error metadata for failed exchanges
//   - UTC timestamp
//
// Author is "user" for user input and the persona name for replies.
type Event struct {
	ID             string            `json:"id"`
	RunID          string            `json:"run_id,omitempty"`
	Author         string            `json:"author"`
	Timestamp      time.Time         `json:"timestamp"`
	Content        *Content          `json:"content,omitempty"`
	ErrorCode      *string           `json:"error_code,omitempty"`
	ErrorMessage   *string           `json:"error_message,omitempty"`
	CustomMetadata map[string]string `json:"custom_metadata,omitempty"`
}

// NewEvent creates a bare event authored by 'author' bound to a run.
// Prefer the message constructors for the common cases.
func NewEvent(runID, author string) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Author:    author,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageEvent creates an assistant message event with a single text part.
// Author is the persona that produced the message.
func NewMessageEvent(runID, author, message string) Event {
	e := NewEvent(runID, author)
	c := NewTextContent(RoleAssistant, message)
	e.Content = &c
	return e
}

// NewUserMessageEvent creates a user-authored text message event.
func NewUserMessageEvent(runID, message string) Event {
	e := NewEvent(runID, RoleUser)
	c := NewTextContent(RoleUser, message)
	e.Content = &c
	return e
}

// NewErrorEvent creates an assistant event carrying a failure. The message is
// stored both as text content (what the user saw) and as ErrorMessage.
func NewErrorEvent(runID, author, code, message string) Event {
	e := NewMessageEvent(runID, author, message)
	e.ErrorCode = &code
	e.ErrorMessage = &message
	return e
}

// NewID generates a new unique identifier for events and sessions.
func NewID() string { return uuid.NewString() }

// IsError reports whether the event records a failed exchange.
func (e Event) IsError() bool { return e.ErrorCode != nil }

// Text returns the concatenated text of the event content, or "".
func (e Event) Text() string {
	if e.Content == nil {
		return ""
	}
	return e.Content.Text()
}

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
