// Package guardrail checks whether a user message is about web application
// development before it is routed to a specialist.
package guardrail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/webdevchat/agent"
	"github.com/hupe1980/webdevchat/core"
	"github.com/hupe1980/webdevchat/logging"
	"github.com/hupe1980/webdevchat/model"
)

// DefaultRefusal prefixes the reply sent when a message is off-topic.
const DefaultRefusal = "I can only help with web application development questions."

// outputFormat is appended to the persona instructions so the reply can be parsed.
const outputFormat = `

Respond ONLY with a JSON object of the form {"is_webdev": true|false, "reasoning": "<one sentence>"}.`

// Verdict is the parsed guardrail output.
type Verdict struct {
	IsWebDev  bool   `json:"is_webdev"`
	Reasoning string `json:"reasoning"`
	// Parsed is false when the model reply held no usable verdict and the
	// check failed open.
	Parsed bool `json:"-"`
}

// Tripped reports whether the message must be refused.
func (v Verdict) Tripped() bool { return !v.IsWebDev }

// Options configure a Guard.
type Options struct {
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
	Refusal     string
	Logger      logging.Logger
}

// Guard runs the topic check persona against a model.
type Guard struct {
	model   model.Model
	persona *agent.Persona
	opts    Options
}

// New creates a Guard that asks m using the persona's instructions.
func New(m model.Model, persona *agent.Persona, optFns ...func(o *Options)) *Guard {
	opts := Options{
		Temperature: 0,
		MaxTokens:   200,
		Refusal:     DefaultRefusal,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Guard{model: m, persona: persona, opts: opts}
}

// Name returns the guardrail persona name.
func (g *Guard) Name() string { return g.persona.Name() }

// Check classifies input. Call failures are returned as errors; replies that
// cannot be parsed fail open.
func (g *Guard) Check(ctx context.Context, input string) (Verdict, error) {
	instructions, err := g.persona.ResolveInstructions(ctx)
	if err != nil {
		return Verdict{}, err
	}

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	resp, err := model.Collect(ctx, g.model, model.Request{
		Instructions: instructions + outputFormat,
		Contents:     []core.Content{core.NewTextContent(core.RoleUser, input)},
		Temperature:  model.Float(g.opts.Temperature),
		MaxTokens:    g.opts.MaxTokens,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("guardrail call failed: %w", err)
	}

	v, ok := ParseVerdict(resp.Text())
	if !ok {
		g.opts.Logger.Warn("guardrail.unparseable", "persona", g.persona.Name(), "reply", resp.Text())
	}
	return v, nil
}

// Refusal builds the reply text for a tripped verdict.
func (g *Guard) Refusal(v Verdict) string {
	if v.Reasoning == "" {
		return g.opts.Refusal
	}
	return g.opts.Refusal + " " + v.Reasoning
}

// ParseVerdict extracts the verdict from a model reply. It tolerates code
// fences and surrounding prose by reading the first JSON object in the text.
// Without a boolean is_webdev field the verdict fails open.
func ParseVerdict(reply string) (Verdict, bool) {
	open := Verdict{IsWebDev: true}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return open, false
	}
	raw := reply[start : end+1]
	if !gjson.Valid(raw) {
		return open, false
	}

	res := gjson.Parse(raw)
	flag := res.Get("is_webdev")
	if flag.Type != gjson.True && flag.Type != gjson.False {
		return open, false
	}
	return Verdict{
		IsWebDev:  flag.Bool(),
		Reasoning: strings.TrimSpace(res.Get("reasoning").String()),
		Parsed:    true,
	}, true
}
