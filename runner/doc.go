// Package runner implements the dispatch step of webdevchat.
//
// A Runner takes a starting persona and a user message and produces one
// Result. For a persona with candidates it first asks the model which
// candidate should answer (the delegation call), then issues the answer call
// with the chosen persona's instructions as the only system context and the
// user message as the only user content.
//
// # Failure semantics
//
// Run never returns an error and never panics. Any failure of either call is
// converted into a Result whose Text starts with "Error: " and whose Persona
// is ErrorPersona. The underlying error is kept in Result.Err for logging.
//
// # Matching
//
// The delegation reply is free text. The first candidate, in declared order,
// whose name occurs in the reply (case-insensitive) wins. Names that are
// substrings of other names are therefore ambiguous; order the candidates
// accordingly. A reply that names no candidate keeps the starting persona.
package runner
