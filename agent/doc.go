// Package agent defines personas and the registry that holds them.
//
// A Persona is a named system prompt. Personas with candidates are routers:
// for each user message the runner asks the model which candidate should
// answer, then answers with that candidate's instructions. Delegation is a
// single round, so candidates are always leaf personas.
//
// The Registry is built once at startup, validated, and passed explicitly to
// the runner, chat service and server. Nothing in this package holds global
// state.
package agent
