// Package logging provides a minimal logging interface and adapters for webdevchat.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the runner, chat service and server use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - LogLLMCall for uniform completion-call records
//
// Usage:
//
//	logger := logging.New(logging.Config{Level: logging.LogLevelInfo, Format: "json"})
//	r := runner.New(model, func(o *runner.Options) { o.Logger = logger })
//
// Arguments follow slog conventions: a message followed by alternating
// key/value pairs.
package logging
