// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with chat completion models inside webdevchat.
//
// Core goals:
//   - Hide vendor SDKs behind a single Generate interface
//   - Carry per-request sampling parameters (temperature, token cap)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so the runner stays decoupled from vendor SDKs. Collect drains a
// Generate call into a single final Response.
package model
