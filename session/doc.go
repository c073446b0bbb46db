// Package session houses concrete implementations of core.SessionStore. The
// interface and the Session type live in core so the chat façade does not
// depend on a concrete backend; only the wiring layer chooses one.
package session
