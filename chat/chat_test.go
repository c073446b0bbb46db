package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/webdevchat/agent"
	"github.com/hupe1980/webdevchat/core"
	"github.com/hupe1980/webdevchat/internal/testutil"
	"github.com/hupe1980/webdevchat/metrics"
	"github.com/hupe1980/webdevchat/runner"
	"github.com/hupe1980/webdevchat/session"
)

// MockDispatcher for testing the façade without a model.
type MockDispatcher struct{ mock.Mock }

func (m *MockDispatcher) Run(ctx context.Context, start *agent.Persona, userMessage string) runner.Result {
	args := m.Called(ctx, start, userMessage)
	return args.Get(0).(runner.Result)
}

func testRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	fe := agent.NewPersona("Frontend Architect", func(o *agent.PersonaOptions) { o.Description = "UI" })
	be := agent.NewPersona("Backend Architect", func(o *agent.PersonaOptions) { o.Description = "APIs" })
	triage := agent.NewPersona("Triage Agent", func(o *agent.PersonaOptions) {
		o.Description = "Main triage agent"
		o.Candidates = []*agent.Persona{fe, be}
	})
	r, err := agent.NewRegistry("Triage Agent", triage, fe, be)
	require.NoError(t, err)
	return r
}

func TestService_AskRecordsExchange(t *testing.T) {
	reg := testRegistry(t)
	d := new(MockDispatcher)
	d.On("Run", mock.Anything, reg.Entry(), "what is REST?").
		Return(runner.Result{RunID: "run-1", Text: "An architectural style.", Persona: "Backend Architect"})

	s := New(d, reg)
	reply, err := s.Ask(context.Background(), "s1", "what is REST?")
	require.NoError(t, err)

	assert.Equal(t, Reply{SessionID: "s1", RunID: "run-1", Text: "An architectural style.", Persona: "Backend Architect"}, reply)
	d.AssertExpectations(t)

	events, err := s.History("s1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, core.RoleUser, events[0].Author)
	assert.Equal(t, "what is REST?", events[0].Text())
	assert.Equal(t, "Backend Architect", events[1].Author)
	assert.Equal(t, "An architectural style.", events[1].Text())
	assert.False(t, events[1].IsError())
}

func TestService_AskGeneratesSessionID(t *testing.T) {
	reg := testRegistry(t)
	d := new(MockDispatcher)
	d.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(runner.Result{Text: "ok", Persona: "Frontend Architect"})

	reply, err := New(d, reg).Ask(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.SessionID)
}

func TestService_AskEmptyMessage(t *testing.T) {
	d := new(MockDispatcher)
	s := New(d, testRegistry(t))

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := s.Ask(context.Background(), "s1", msg)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	d.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_AskFailureIsReplyNotError(t *testing.T) {
	d := new(MockDispatcher)
	d.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(runner.Result{
		Text:    "Error: openai api error: 401",
		Persona: runner.ErrorPersona,
		Err:     errors.New("openai api error: 401"),
	})

	s := New(d, testRegistry(t))
	reply, err := s.Ask(context.Background(), "s1", "q")
	require.NoError(t, err)
	assert.True(t, reply.Failed)
	assert.Equal(t, "Error", reply.Persona)

	events, err := s.History("s1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.True(t, events[1].IsError())
	assert.Equal(t, core.ErrorCodeUpstream, *events[1].ErrorCode)
}

func TestService_AskRefused(t *testing.T) {
	d := new(MockDispatcher)
	d.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(runner.Result{
		Text:    "I can only help with web application development questions.",
		Persona: "Guardrail check",
		Refused: true,
	})

	s := New(d, testRegistry(t))
	reply, err := s.Ask(context.Background(), "s1", "pasta?")
	require.NoError(t, err)
	assert.True(t, reply.Refused)
	assert.False(t, reply.Failed)

	events, _ := s.History("s1")
	assert.Equal(t, core.ErrorCodeGuardrail, *events[1].ErrorCode)
}

func TestService_AskPersona(t *testing.T) {
	reg := testRegistry(t)
	be, err := reg.Get("Backend Architect")
	require.NoError(t, err)

	d := new(MockDispatcher)
	d.On("Run", mock.Anything, be, "q").Return(runner.Result{Text: "a", Persona: "Backend Architect"})

	s := New(d, reg)
	reply, err := s.AskPersona(context.Background(), "s1", "Backend Architect", "q")
	require.NoError(t, err)
	assert.Equal(t, "Backend Architect", reply.Persona)

	_, err = s.AskPersona(context.Background(), "s1", "Chef", "q")
	assert.ErrorIs(t, err, agent.ErrUnknownPersona)
}

func TestService_WithRealRunner(t *testing.T) {
	reg := testRegistry(t)
	m := testutil.NewScriptedModel().Reply("Frontend Architect").Reply("Use CSS grid.")
	r, err := runner.New(m)
	require.NoError(t, err)

	reply, err := New(r, reg).Ask(context.Background(), "s1", "layout help")
	require.NoError(t, err)
	assert.Equal(t, "Frontend Architect", reply.Persona)
	assert.Equal(t, "Use CSS grid.", reply.Text)
	assert.NotEmpty(t, reply.RunID)
}

func TestService_ResetAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt := metrics.NewMetrics(reg)

	d := new(MockDispatcher)
	d.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(runner.Result{Text: "ok", Persona: "Frontend Architect"})

	s := New(d, testRegistry(t), func(o *Options) { o.Metrics = mt })
	_, err := s.Ask(context.Background(), "s1", "a")
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "s2", "b")
	require.NoError(t, err)
	assert.Equal(t, 2.0, promtest.ToFloat64(mt.ActiveSessions))

	require.NoError(t, s.Reset("s1"))
	assert.Equal(t, 1.0, promtest.ToFloat64(mt.ActiveSessions))

	events, err := s.History("s2")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestService_HistoryDoesNotEvictLiveSessions(t *testing.T) {
	const maxSessions = 3
	store := session.NewInMemoryStore(func(o *session.Options) { o.MaxSessions = maxSessions })

	d := new(MockDispatcher)
	d.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(runner.Result{Text: "ok", Persona: "Frontend Architect"})

	s := New(d, testRegistry(t), func(o *Options) { o.SessionStore = store })
	_, err := s.Ask(context.Background(), "alice", "hi")
	require.NoError(t, err)

	for _, id := range []string{"u1", "u2", "u3"} {
		events, err := s.History(id)
		require.NoError(t, err)
		assert.Empty(t, events)
	}

	events, err := s.History("alice")
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 1, store.Len())
}

func TestService_Personas(t *testing.T) {
	s := New(new(MockDispatcher), testRegistry(t))

	assert.Equal(t, "Triage Agent", s.Entry())
	assert.Equal(t, []PersonaInfo{
		{Name: "Triage Agent", Description: "Main triage agent", Candidates: []string{"Frontend Architect", "Backend Architect"}, Entry: true},
		{Name: "Frontend Architect", Description: "UI"},
		{Name: "Backend Architect", Description: "APIs"},
	}, s.Personas())
}
