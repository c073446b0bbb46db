package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/webdevchat/core"
	"github.com/hupe1980/webdevchat/model"
)

// ErrScriptExhausted is returned once every scripted step has been consumed.
var ErrScriptExhausted = errors.New("scripted model: no more steps")

type step struct {
	text  string
	err   error
	hang  bool
	panic any
}

// ScriptedModel is a model.Model that answers calls from a fixed script and
// records every request it receives. Example:
//
//	m := NewScriptedModel().Reply("Backend Architect").Reply("Use PostgreSQL.")
//
// Chain only the steps you need; each Generate call consumes one step.
type ScriptedModel struct {
	mu       sync.Mutex
	info     model.Info
	steps    []step
	requests []model.Request
}

// NewScriptedModel creates an empty script.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{info: model.Info{Name: "scripted", Provider: "test"}}
}

// Reply appends a successful text completion (chainable).
func (s *ScriptedModel) Reply(text string) *ScriptedModel {
	return s.add(step{text: text})
}

// Fail appends a call that returns err (chainable).
func (s *ScriptedModel) Fail(err error) *ScriptedModel {
	return s.add(step{err: err})
}

// Hang appends a call that blocks until its context is done (chainable).
func (s *ScriptedModel) Hang() *ScriptedModel {
	return s.add(step{hang: true})
}

// Panic appends a call that panics with v inside Generate (chainable).
func (s *ScriptedModel) Panic(v any) *ScriptedModel {
	return s.add(step{panic: v})
}

// WithInfo overrides the reported model info (chainable).
func (s *ScriptedModel) WithInfo(info model.Info) *ScriptedModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
	return s
}

func (s *ScriptedModel) add(st step) *ScriptedModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, st)
	return s
}

// Generate implements model.Model.
func (s *ScriptedModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	var (
		st step
		ok bool
	)
	if len(s.steps) > 0 {
		st, ok = s.steps[0], true
		s.steps = s.steps[1:]
	}
	s.mu.Unlock()

	if ok && st.panic != nil {
		panic(st.panic)
	}

	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		switch {
		case !ok:
			errCh <- ErrScriptExhausted
		case st.hang:
			<-ctx.Done()
			errCh <- ctx.Err()
		case st.err != nil:
			errCh <- st.err
		default:
			out <- model.Response{
				Content:      core.NewTextContent(core.RoleAssistant, st.text),
				FinishReason: "stop",
				Usage:        &model.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			}
		}
	}()
	return out, errCh
}

// Info implements model.Model.
func (s *ScriptedModel) Info() model.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Requests returns a copy of every request received so far.
func (s *ScriptedModel) Requests() []model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CallCount returns how many times Generate was called.
func (s *ScriptedModel) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastUserText returns the text of the last content of request i.
func (s *ScriptedModel) LastUserText(i int) string {
	reqs := s.Requests()
	if i >= len(reqs) || len(reqs[i].Contents) == 0 {
		return ""
	}
	c := reqs[i].Contents
	return c[len(c)-1].Text()
}
