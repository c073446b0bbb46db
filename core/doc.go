// Package core provides the foundational domain types shared by webdevchat:
//
//   - Content / Part (role tagged conversational payloads sent to models)
//   - Events (immutable records of one side of an exchange)
//   - Sessions (ordered event history for a chat conversation)
//   - SessionStore (pluggable persistence for sessions)
//
// The package keeps implementation concerns (model providers, persona routing,
// transports) out of scope and exposes small types so the remaining packages
// can depend on it without cycles.
package core
