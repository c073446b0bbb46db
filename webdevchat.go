// Package webdevchat provides a high-level façade over the triage runner, the
// persona catalog and the session store. Most applications interact with this
// package by:
//  1. Creating a WebDevChat via New() with a model.Model (optionally overriding
//     the built-in catalog, session store or logger)
//  2. Sending user messages with Ask, which routes each message through the
//     triage persona to a specialist
//
// The façade delegates orchestration to runner.Runner and chat.Service while
// keeping setup concise. All defaults are safe for local development and
// testing.
package webdevchat

import (
	"context"

	"github.com/hupe1980/webdevchat/agent"
	"github.com/hupe1980/webdevchat/catalog"
	"github.com/hupe1980/webdevchat/chat"
	"github.com/hupe1980/webdevchat/core"
	"github.com/hupe1980/webdevchat/logging"
	"github.com/hupe1980/webdevchat/model"
	"github.com/hupe1980/webdevchat/runner"
)

// Options configures the WebDevChat instance.
type Options struct {
	// Registry defaults to catalog.WebDev().
	Registry *agent.Registry

	// RunnerOptions are applied to the runner after the defaults.
	RunnerOptions []func(o *runner.Options)

	// Stores (defaults to in-memory implementations if not provided)
	SessionStore core.SessionStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// WebDevChat is the high-level façade aggregating the runner and chat service.
type WebDevChat struct {
	opts    Options
	runner  *runner.Runner
	service *chat.Service
}

// New creates a new WebDevChat answering with m.
func New(m model.Model, optFns ...func(o *Options)) (*WebDevChat, error) {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Registry == nil {
		opts.Registry = catalog.WebDev()
	}

	r, err := runner.New(m, append([]func(o *runner.Options){func(o *runner.Options) {
		o.Logger = opts.Logger
	}}, opts.RunnerOptions...)...)
	if err != nil {
		return nil, err
	}

	svc := chat.New(r, opts.Registry, func(o *chat.Options) {
		o.SessionStore = opts.SessionStore
		o.Logger = opts.Logger
	})

	return &WebDevChat{opts: opts, runner: r, service: svc}, nil
}

// Ask routes message through the entry persona. An empty sessionID starts a
// new session; the returned Reply carries its id.
func (w *WebDevChat) Ask(ctx context.Context, sessionID, message string) (chat.Reply, error) {
	return w.service.Ask(ctx, sessionID, message)
}

// AskPersona sends message straight to the named persona.
func (w *WebDevChat) AskPersona(ctx context.Context, sessionID, persona, message string) (chat.Reply, error) {
	return w.service.AskPersona(ctx, sessionID, persona, message)
}

// Run dispatches a single message without recording it in a session.
func (w *WebDevChat) Run(ctx context.Context, message string) runner.Result {
	return w.runner.Run(ctx, w.opts.Registry.Entry(), message)
}

// Registry returns the persona registry in use.
func (w *WebDevChat) Registry() *agent.Registry { return w.opts.Registry }

// Service exposes the chat service for the server and terminal UI.
func (w *WebDevChat) Service() *chat.Service { return w.service }
