package guardrail

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/webdevchat/agent"
	"github.com/hupe1980/webdevchat/internal/testutil"
)

func persona() *agent.Persona {
	return agent.NewPersona("Guardrail check", func(o *agent.PersonaOptions) {
		o.Instruction = agent.NewInstructionFromText("Check if the user is asking about web application development.")
	})
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		want      Verdict
		wantParse bool
	}{
		{"plain", `{"is_webdev": true, "reasoning": "asks about React"}`, Verdict{IsWebDev: true, Reasoning: "asks about React", Parsed: true}, true},
		{"off topic", `{"is_webdev": false, "reasoning": "cooking question"}`, Verdict{IsWebDev: false, Reasoning: "cooking question", Parsed: true}, true},
		{"fenced", "```json\n{\"is_webdev\": false}\n```", Verdict{IsWebDev: false, Parsed: true}, true},
		{"prose", `Sure! {"is_webdev": true, "reasoning": " CSS "} Hope that helps.`, Verdict{IsWebDev: true, Reasoning: "CSS", Parsed: true}, true},
		{"no json", "yes", Verdict{IsWebDev: true}, false},
		{"invalid json", `{"is_webdev": }`, Verdict{IsWebDev: true}, false},
		{"string flag", `{"is_webdev": "no"}`, Verdict{IsWebDev: true}, false},
		{"missing flag", `{"reasoning": "?"}`, Verdict{IsWebDev: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseVerdict(tt.reply)
			assert.Equal(t, tt.wantParse, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuard_CheckTripped(t *testing.T) {
	m := testutil.NewScriptedModel().Reply(`{"is_webdev": false, "reasoning": "This is about baking."}`)
	g := New(m, persona())

	v, err := g.Check(context.Background(), "How do I bake bread?")
	require.NoError(t, err)
	assert.True(t, v.Tripped())
	assert.Equal(t, DefaultRefusal+" This is about baking.", g.Refusal(v))
	assert.Equal(t, "Guardrail check", g.Name())

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, strings.HasPrefix(reqs[0].Instructions, "Check if the user is asking about web application development."))
	assert.Contains(t, reqs[0].Instructions, `"is_webdev"`)
	assert.Equal(t, "How do I bake bread?", m.LastUserText(0))
	require.NotNil(t, reqs[0].Temperature)
	assert.Equal(t, 0.0, *reqs[0].Temperature)
	assert.Equal(t, int64(200), reqs[0].MaxTokens)
}

func TestGuard_CheckFailsOpen(t *testing.T) {
	m := testutil.NewScriptedModel().Reply("I think so")
	g := New(m, persona())

	v, err := g.Check(context.Background(), "What is HTMX?")
	require.NoError(t, err)
	assert.False(t, v.Tripped())
	assert.False(t, v.Parsed)
}

func TestGuard_CheckError(t *testing.T) {
	boom := errors.New("rate limited")
	g := New(testutil.NewScriptedModel().Fail(boom), persona())

	_, err := g.Check(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
}

func TestGuard_RefusalWithoutReasoning(t *testing.T) {
	g := New(testutil.NewScriptedModel(), persona(), func(o *Options) { o.Refusal = "Off topic." })
	assert.Equal(t, "Off topic.", g.Refusal(Verdict{}))
}
