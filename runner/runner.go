package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hupe1980/webdevchat/agent"
	"github.com/hupe1980/webdevchat/core"
	"github.com/hupe1980/webdevchat/guardrail"
	"github.com/hupe1980/webdevchat/internal/util"
	"github.com/hupe1980/webdevchat/logging"
	"github.com/hupe1980/webdevchat/metrics"
	"github.com/hupe1980/webdevchat/model"
)

// ErrorPersona is reported as Result.Persona when a run failed.
const ErrorPersona = "Error"

// Call kinds used for spans, logs and metrics.
const (
	CallDelegate  = "delegate"
	CallAnswer    = "answer"
	CallGuardrail = "guardrail"
)

// DefaultPromptTemplate renders the delegation system prompt. It receives
// .Instructions (the router's instructions), .Candidates ("Name: description"
// strings) and .Agents (structs with Name and Description).
const DefaultPromptTemplate = `{{.Instructions}}

You must select the most appropriate specialist agent to handle this query.
Available agents:
{{join ", " .Candidates}}

Respond ONLY with the name of the agent that should handle this query.`

// ErrNoPersona is returned inside a Result when Run is called without a persona.
var ErrNoPersona = errors.New("no starting persona")

// Guardrail screens user messages before delegation.
type Guardrail interface {
	Name() string
	Check(ctx context.Context, input string) (guardrail.Verdict, error)
	Refusal(v guardrail.Verdict) string
}

// CallOptions are the sampling parameters of one kind of model call.
type CallOptions struct {
	Temperature float64
	MaxTokens   int64
	// Timeout bounds the call; zero means no limit beyond the caller's context.
	Timeout time.Duration
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Delegation configures the persona selection call.
	Delegation CallOptions
	// Answer configures the reply call.
	Answer CallOptions
	// PromptTemplate overrides DefaultPromptTemplate.
	PromptTemplate string
	// Guardrail, when set, screens messages sent to personas with candidates.
	Guardrail Guardrail
	// Logging services.
	Logger logging.Logger
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// TracerProvider defaults to a no-op provider.
	TracerProvider trace.TracerProvider
}

// Result is the outcome of one run.
type Result struct {
	RunID string
	// Text is the answer, a refusal, or "Error: <message>".
	Text string
	// Persona is the name of the persona that produced Text.
	Persona string
	// Refused is set when the guardrail rejected the message.
	Refused bool
	// Err is the failure behind an ErrorPersona result.
	Err      error
	Duration time.Duration
}

// Failed reports whether the run ended in an upstream failure.
func (r Result) Failed() bool { return r.Persona == ErrorPersona }

// Runner dispatches user messages to personas. It holds no per-run state and
// is safe for concurrent use.
type Runner struct {
	model     model.Model
	prompt    *template.Template
	opts      Options
	logger    logging.Logger
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	guardrail Guardrail
}

// New constructs a Runner with optional overrides.
func New(m model.Model, optFns ...func(o *Options)) (*Runner, error) {
	opts := Options{
		Delegation:     CallOptions{Temperature: 0.3, MaxTokens: 100},
		Answer:         CallOptions{Temperature: 0.7, MaxTokens: 1000},
		PromptTemplate: DefaultPromptTemplate,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if m == nil {
		return nil, errors.New("runner: model is required")
	}
	if opts.PromptTemplate == "" {
		opts.PromptTemplate = DefaultPromptTemplate
	}
	prompt, err := util.ParseTemplate("delegation", opts.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}

	return &Runner{
		model:     m,
		prompt:    prompt,
		opts:      opts,
		logger:    opts.Logger,
		tracer:    tp.Tracer("github.com/hupe1980/webdevchat/runner"),
		metrics:   opts.Metrics,
		guardrail: opts.Guardrail,
	}, nil
}

// Run dispatches userMessage starting at start.
func (r *Runner) Run(ctx context.Context, start *agent.Persona, userMessage string) (res Result) {
	runID := core.NewID()
	started := time.Now()

	startName := ""
	if start != nil {
		startName = start.Name()
	}

	ctx, span := r.tracer.Start(ctx, "triage_workflow", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("persona.start", startName),
	))

	r.logger.Debug("runner.run.start", "run_id", runID, "persona", startName)

	defer func() {
		if rec := recover(); rec != nil {
			res = failure(fmt.Errorf("panic during run: %v", rec))
		}
		res.RunID = runID
		res.Duration = time.Since(started)

		span.SetAttributes(attribute.String("persona.used", res.Persona))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			r.logger.Error("runner.run.failed", "run_id", runID, "persona", startName, "error", res.Err, "duration", res.Duration)
		} else {
			r.logger.Info("runner.run.complete", "run_id", runID, "persona", res.Persona, "refused", res.Refused, "duration", res.Duration)
		}
		span.End()
		r.metrics.ObserveRun(res.Persona)
	}()

	if start == nil {
		return failure(ErrNoPersona)
	}

	if r.guardrail != nil && start.HasCandidates() {
		verdict, err := r.checkGuardrail(ctx, userMessage)
		if err != nil {
			return failure(err)
		}
		if verdict.Tripped() {
			r.metrics.ObserveGuardrailTrip()
			return Result{Text: r.guardrail.Refusal(verdict), Persona: r.guardrail.Name(), Refused: true}
		}
	}

	effective := start
	if start.HasCandidates() {
		selected, err := r.delegate(ctx, runID, start, userMessage)
		if err != nil {
			return failure(err)
		}
		effective = selected
	}

	text, err := r.answer(ctx, runID, effective, userMessage)
	if err != nil {
		return failure(err)
	}

	return Result{Text: text, Persona: effective.Name()}
}

// delegate asks the model which candidate of router should answer.
func (r *Runner) delegate(ctx context.Context, runID string, router *agent.Persona, userMessage string) (*agent.Persona, error) {
	instructions, err := router.ResolveInstructions(ctx)
	if err != nil {
		return nil, err
	}
	prompt, err := r.renderPrompt(instructions, router.Candidates())
	if err != nil {
		return nil, err
	}

	reply, err := r.call(ctx, CallDelegate, runID, router, prompt, userMessage, r.opts.Delegation)
	if err != nil && !errors.Is(err, model.ErrEmptyResponse) {
		return nil, fmt.Errorf("delegation failed: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if selected, ok := MatchCandidate(reply, router.Candidates()); ok {
		r.logger.Info("runner.delegate.selected", "run_id", runID, "router", router.Name(), "persona", selected.Name())
		return selected, nil
	}

	r.logger.Warn("runner.delegate.fallback", "run_id", runID, "router", router.Name(), "reply", reply)
	return router, nil
}

// answer issues the reply call with the persona's instructions as the only system context.
func (r *Runner) answer(ctx context.Context, runID string, persona *agent.Persona, userMessage string) (string, error) {
	instructions, err := persona.ResolveInstructions(ctx)
	if err != nil {
		return "", err
	}
	text, err := r.call(ctx, CallAnswer, runID, persona, instructions, userMessage, r.opts.Answer)
	if err != nil {
		return "", fmt.Errorf("answer failed: %w", err)
	}
	return text, nil
}

func (r *Runner) checkGuardrail(ctx context.Context, userMessage string) (guardrail.Verdict, error) {
	ctx, span := r.tracer.Start(ctx, CallGuardrail, trace.WithAttributes(
		attribute.String("persona", r.guardrail.Name()),
	))
	defer span.End()

	started := time.Now()
	verdict, err := r.guardrail.Check(ctx, userMessage)
	r.metrics.ObserveCall(CallGuardrail, time.Since(started), 0, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return guardrail.Verdict{}, err
	}
	span.SetAttributes(attribute.Bool("guardrail.tripped", verdict.Tripped()))
	return verdict, nil
}

// call performs one completion request with its own span and optional timeout.
func (r *Runner) call(
	ctx context.Context,
	kind, runID string,
	persona *agent.Persona,
	instructions, userMessage string,
	co CallOptions,
) (string, error) {
	info := r.model.Info()
	ctx, span := r.tracer.Start(ctx, kind, trace.WithAttributes(
		attribute.String("persona", persona.Name()),
		attribute.String("model.name", info.Name),
		attribute.String("model.provider", info.Provider),
	))
	defer span.End()

	if co.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, co.Timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := model.Collect(ctx, r.model, model.Request{
		Instructions: instructions,
		Contents:     []core.Content{core.NewTextContent(core.RoleUser, userMessage)},
		Temperature:  model.Float(co.Temperature),
		MaxTokens:    co.MaxTokens,
	})
	duration := time.Since(started)

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	logging.LogLLMCall(logging.With(r.logger, "run_id", runID), logging.LLMCall{
		Kind:     kind,
		Persona:  persona.Name(),
		Model:    info.Name,
		Tokens:   tokens,
		Duration: duration,
		Err:      err,
	})
	r.metrics.ObserveCall(kind, duration, tokens, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("tokens.total", tokens))
	return resp.Text(), nil
}

type agentView struct {
	Name        string
	Description string
}

type promptData struct {
	Instructions string
	Candidates   []string
	Agents       []agentView
}

func (r *Runner) renderPrompt(instructions string, candidates []*agent.Persona) (string, error) {
	data := promptData{Instructions: instructions}
	for _, c := range candidates {
		data.Candidates = append(data.Candidates, c.Name()+": "+c.Description())
		data.Agents = append(data.Agents, agentView{Name: c.Name(), Description: c.Description()})
	}
	return util.Execute(r.prompt, data)
}

// MatchCandidate returns the first candidate, in declared order, whose name
// occurs in reply ignoring case.
func MatchCandidate(reply string, candidates []*agent.Persona) (*agent.Persona, bool) {
	lower := strings.ToLower(reply)
	if lower == "" {
		return nil, false
	}
	for _, c := range candidates {
		if strings.Contains(lower, strings.ToLower(c.Name())) {
			return c, true
		}
	}
	return nil, false
}

func failure(err error) Result {
	return Result{
		Text:    "Error: " + err.Error(),
		Persona: ErrorPersona,
		Err:     err,
	}
}
