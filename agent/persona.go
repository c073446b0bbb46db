package agent

import (
	"context"
	"fmt"
	"strings"
)

// PersonaOptions configures a Persona instance.
//
// Use functional options with NewPersona to override defaults.
type PersonaOptions struct {
	// Instruction is the system prompt presented to the model.
	Instruction Instruction
	// Description is the short summary shown to a delegating persona.
	Description string
	// Candidates lists the personas this one may delegate to, in priority order.
	Candidates []*Persona
}

// Persona is a named system-prompt configuration. A persona with candidates
// is a router: it picks one candidate per run before the answer call.
//
// Personas are immutable after construction and safe for concurrent use.
type Persona struct {
	name        string // Unique name, also what a router is asked to reply with
	description string // Short description listed by routers
	instruction Instruction
	candidates  []*Persona // Ordered; empty for leaf personas
}

// NewPersona creates a persona with sensible defaults.
func NewPersona(name string, optFns ...func(o *PersonaOptions)) *Persona {
	name = strings.TrimSpace(name)
	opts := PersonaOptions{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		Description: fmt.Sprintf("Agent %s", name),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	candidates := make([]*Persona, len(opts.Candidates))
	copy(candidates, opts.Candidates)

	return &Persona{
		name:        name,
		description: opts.Description,
		instruction: opts.Instruction,
		candidates:  candidates,
	}
}

// Name returns the persona name.
func (p *Persona) Name() string { return p.name }

// Description returns the short description used in delegation prompts.
func (p *Persona) Description() string { return p.description }

// Instruction returns the persona's instruction source.
func (p *Persona) Instruction() Instruction { return p.instruction }

// Candidates returns a copy of the ordered delegation candidates.
func (p *Persona) Candidates() []*Persona {
	out := make([]*Persona, len(p.candidates))
	copy(out, p.candidates)
	return out
}

// HasCandidates reports whether the persona delegates before answering.
func (p *Persona) HasCandidates() bool { return len(p.candidates) > 0 }

// ResolveInstructions produces the final instruction string (system prompt).
func (p *Persona) ResolveInstructions(ctx context.Context) (string, error) {
	text, err := p.instruction.Resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve instructions for %s: %w", p.name, err)
	}
	return text, nil
}

// String implements fmt.Stringer.
func (p *Persona) String() string { return p.name }
