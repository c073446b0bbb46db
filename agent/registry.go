package agent

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyName is returned for personas without a name.
	ErrEmptyName = errors.New("persona name is empty")
	// ErrDuplicatePersona is returned when two personas share a name.
	ErrDuplicatePersona = errors.New("duplicate persona")
	// ErrNestedDelegation is returned when a candidate has candidates of its own.
	ErrNestedDelegation = errors.New("nested delegation is not supported")
	// ErrUnknownPersona is returned for names that are not registered.
	ErrUnknownPersona = errors.New("unknown persona")
)

// Registry is the immutable lookup table of personas built once at startup
// and passed explicitly to the components that need it.
type Registry struct {
	entry  *Persona
	order  []*Persona
	byName map[string]*Persona
}

// NewRegistry validates personas and returns a registry whose entry persona is
// the one named entry.
//
// Invariants:
//   - names are non-empty and unique
//   - candidates are registered (the same *Persona under the same name)
//   - candidates are leaves, so delegation is a single round
//   - entry names a registered persona
func NewRegistry(entry string, personas ...*Persona) (*Registry, error) {
	r := &Registry{
		order:  make([]*Persona, 0, len(personas)),
		byName: make(map[string]*Persona, len(personas)),
	}

	for _, p := range personas {
		if p == nil || p.Name() == "" {
			return nil, ErrEmptyName
		}
		if _, exists := r.byName[p.Name()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePersona, p.Name())
		}
		r.byName[p.Name()] = p
		r.order = append(r.order, p)
	}

	for _, p := range r.order {
		for _, c := range p.candidates {
			if c == nil {
				return nil, fmt.Errorf("%w: nil candidate of %s", ErrUnknownPersona, p.Name())
			}
			if registered, ok := r.byName[c.Name()]; !ok || registered != c {
				return nil, fmt.Errorf("%w: candidate %s of %s is not registered", ErrUnknownPersona, c.Name(), p.Name())
			}
			if c.HasCandidates() {
				return nil, fmt.Errorf("%w: %s delegates to router %s", ErrNestedDelegation, p.Name(), c.Name())
			}
		}
	}

	e, err := r.Get(entry)
	if err != nil {
		return nil, fmt.Errorf("entry persona: %w", err)
	}
	r.entry = e

	return r, nil
}

// Get returns the persona registered under name.
func (r *Registry) Get(name string) (*Persona, error) {
	p, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, name)
	}
	return p, nil
}

// Entry returns the persona user messages start at.
func (r *Registry) Entry() *Persona { return r.entry }

// Personas returns all personas in declaration order.
func (r *Registry) Personas() []*Persona {
	out := make([]*Persona, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns all persona names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	for i, p := range r.order {
		names[i] = p.Name()
	}
	return names
}

// Len returns the number of registered personas.
func (r *Registry) Len() int { return len(r.order) }
