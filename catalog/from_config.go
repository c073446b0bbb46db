package catalog

import (
	"fmt"
	"strings"

	"github.com/hupe1980/webdevchat/agent"
	"github.com/hupe1980/webdevchat/config"
)

// FromConfig builds the registry described by cfg. Without persona
// definitions the built-in catalog is used with cfg.Entry as entry persona.
func FromConfig(cfg config.Config) (*agent.Registry, error) {
	if len(cfg.Personas) == 0 {
		return WebDevWithEntry(cfg.Entry)
	}

	defs := make(map[string]config.PersonaConfig, len(cfg.Personas))
	for _, pc := range cfg.Personas {
		defs[strings.TrimSpace(pc.Name)] = pc
	}

	// Leaves first so routers can point at the registered instances.
	leaves := make(map[string]*agent.Persona, len(cfg.Personas))
	for _, pc := range cfg.Personas {
		if len(pc.Candidates) > 0 {
			continue
		}
		leaves[strings.TrimSpace(pc.Name)] = fromDefinition(pc, nil)
	}

	personas := make([]*agent.Persona, 0, len(cfg.Personas))
	for _, pc := range cfg.Personas {
		name := strings.TrimSpace(pc.Name)
		if len(pc.Candidates) == 0 {
			personas = append(personas, leaves[name])
			continue
		}

		candidates := make([]*agent.Persona, 0, len(pc.Candidates))
		for _, cn := range pc.Candidates {
			cn = strings.TrimSpace(cn)
			def, ok := defs[cn]
			if !ok {
				return nil, fmt.Errorf("persona %s: %w: candidate %q", name, agent.ErrUnknownPersona, cn)
			}
			if len(def.Candidates) > 0 {
				return nil, fmt.Errorf("persona %s: %w: candidate %q has candidates", name, agent.ErrNestedDelegation, cn)
			}
			candidates = append(candidates, leaves[cn])
		}
		personas = append(personas, fromDefinition(pc, candidates))
	}

	return agent.NewRegistry(cfg.Entry, personas...)
}

func fromDefinition(pc config.PersonaConfig, candidates []*agent.Persona) *agent.Persona {
	return agent.NewPersona(pc.Name, func(o *agent.PersonaOptions) {
		o.Instruction = agent.NewInstructionFromText(pc.Instructions)
		if pc.Description != "" {
			o.Description = pc.Description
		}
		o.Candidates = candidates
	})
}
