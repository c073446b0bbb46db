// Package chat provides the session-aware façade used by the CLI, the
// terminal UI and the HTTP server. It validates input, dispatches messages to
// the entry persona and records every exchange in a session store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/webdevchat/agent"
	"github.com/hupe1980/webdevchat/core"
	"github.com/hupe1980/webdevchat/logging"
	"github.com/hupe1980/webdevchat/metrics"
	"github.com/hupe1980/webdevchat/runner"
	"github.com/hupe1980/webdevchat/session"
)

// ErrEmptyMessage is returned for messages that are empty or whitespace only.
var ErrEmptyMessage = errors.New("message must not be empty")

// Dispatcher runs one message against a persona. *runner.Runner implements it.
type Dispatcher interface {
	Run(ctx context.Context, start *agent.Persona, userMessage string) runner.Result
}

// Options configures the Service.
type Options struct {
	// SessionStore defaults to an in-memory store.
	SessionStore core.SessionStore
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Reply is what a user sees for one message.
type Reply struct {
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id,omitempty"`
	Text      string `json:"response"`
	Persona   string `json:"persona"`
	Failed    bool   `json:"failed,omitempty"`
	Refused   bool   `json:"refused,omitempty"`
}

// PersonaInfo describes a registered persona for listings.
type PersonaInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Candidates  []string `json:"candidates,omitempty"`
	Entry       bool     `json:"entry,omitempty"`
}

// Service is the high-level façade aggregating the dispatcher, registry and
// session store. It is safe for concurrent use.
type Service struct {
	dispatcher Dispatcher
	registry   *agent.Registry
	store      core.SessionStore
	logger     logging.Logger
	metrics    *metrics.Metrics
}

// New creates a Service. Any unset dependency is initialized with a default.
func New(d Dispatcher, registry *agent.Registry, optFns ...func(o *Options)) *Service {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Service{
		dispatcher: d,
		registry:   registry,
		store:      opts.SessionStore,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Ask sends message to the entry persona. An empty sessionID starts a new
// session. Upstream failures are reported in the Reply, not as an error.
func (s *Service) Ask(ctx context.Context, sessionID, message string) (Reply, error) {
	return s.ask(ctx, sessionID, s.registry.Entry(), message)
}

// AskPersona sends message to the named persona instead of the entry persona.
func (s *Service) AskPersona(ctx context.Context, sessionID, persona, message string) (Reply, error) {
	p, err := s.registry.Get(persona)
	if err != nil {
		return Reply{}, err
	}
	return s.ask(ctx, sessionID, p, message)
}

func (s *Service) ask(ctx context.Context, sessionID string, start *agent.Persona, message string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = core.NewID()
	}

	logger := logging.With(s.logger, "session_id", sessionID)
	logger.Debug("chat.ask", "persona", start.Name(), "message_length", len(message))

	res := s.dispatcher.Run(ctx, start, message)

	if err := s.store.AppendEvent(sessionID, core.NewUserMessageEvent(res.RunID, message)); err != nil {
		return Reply{}, fmt.Errorf("failed to append user event: %w", err)
	}
	if err := s.store.AppendEvent(sessionID, replyEvent(res)); err != nil {
		return Reply{}, fmt.Errorf("failed to append reply event: %w", err)
	}
	s.observeSessions()

	if res.Failed() {
		logger.Warn("chat.ask.failed", "run_id", res.RunID, "error", res.Err)
	}

	return Reply{
		SessionID: sessionID,
		RunID:     res.RunID,
		Text:      res.Text,
		Persona:   res.Persona,
		Failed:    res.Failed(),
		Refused:   res.Refused,
	}, nil
}

func replyEvent(res runner.Result) core.Event {
	switch {
	case res.Failed():
		return core.NewErrorEvent(res.RunID, res.Persona, core.ErrorCodeUpstream, res.Text)
	case res.Refused:
		return core.NewErrorEvent(res.RunID, res.Persona, core.ErrorCodeGuardrail, res.Text)
	default:
		return core.NewMessageEvent(res.RunID, res.Persona, res.Text)
	}
}

// History returns the events of a session in order. Unknown sessions are empty.
func (s *Service) History(sessionID string) ([]core.Event, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.observeSessions()
	return sess.GetEvents(), nil
}

// Reset drops a session's history.
func (s *Service) Reset(sessionID string) error {
	if err := s.store.Delete(sessionID); err != nil {
		return err
	}
	s.logger.Debug("chat.reset", "session_id", sessionID)
	s.observeSessions()
	return nil
}

// Entry returns the name of the entry persona.
func (s *Service) Entry() string { return s.registry.Entry().Name() }

// Personas lists the registered personas in declaration order.
func (s *Service) Personas() []PersonaInfo {
	entry := s.registry.Entry()
	out := make([]PersonaInfo, 0, s.registry.Len())
	for _, p := range s.registry.Personas() {
		info := PersonaInfo{
			Name:        p.Name(),
			Description: p.Description(),
			Entry:       p == entry,
		}
		for _, c := range p.Candidates() {
			info.Candidates = append(info.Candidates, c.Name())
		}
		out = append(out, info)
	}
	return out
}

func (s *Service) observeSessions() {
	if counter, ok := s.store.(interface{ Len() int }); ok {
		s.metrics.SetActiveSessions(counter.Len())
	}
}
