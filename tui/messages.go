// Package tui provides the interactive terminal chat built on Bubble Tea.
package tui

import "github.com/hupe1980/webdevchat/chat"

// replyMsg carries the outcome of one Ask call back into the update loop.
type replyMsg struct {
	reply chat.Reply
	err   error
}

// resetMsg is sent after the session history was dropped.
type resetMsg struct {
	err error
}

type entryKind int

const (
	entryUser entryKind = iota
	entryReply
	entryError
)

// entry is one line of the transcript.
type entry struct {
	kind    entryKind
	persona string
	text    string
}
