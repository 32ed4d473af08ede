package engine

import (
	"ai-proposalgen-be/pkg/workflow/state"
)

// GeneratorTable is the explicit, statically-typed mapping from content unit
// to generation function. It is built once at startup and passed into the
// engine by reference; nothing is registered or looked up dynamically at
// runtime.
type GeneratorTable struct {
	phases         map[state.ContentKind]GenerationFn
	sections       map[state.SectionID]GenerationFn
	defaultSection GenerationFn
}

// NewGeneratorTable wires the three phase generators and the fallback used
// for any section without a dedicated generator.
func NewGeneratorTable(research, solution, connections, defaultSection GenerationFn) *GeneratorTable {
	return &GeneratorTable{
		phases: map[state.ContentKind]GenerationFn{
			state.KindResearch:    research,
			state.KindSolution:    solution,
			state.KindConnections: connections,
		},
		sections:       map[state.SectionID]GenerationFn{},
		defaultSection: defaultSection,
	}
}

// RegisterSection binds a dedicated generator to one section id. Call only
// during startup wiring, before the table is handed to the engine.
func (t *GeneratorTable) RegisterSection(id state.SectionID, fn GenerationFn) {
	t.sections[id] = fn
}

// Lookup resolves the generator for a content reference.
func (t *GeneratorTable) Lookup(ref state.ContentReference) (GenerationFn, bool) {
	if ref.Kind == state.KindSection {
		if fn, ok := t.sections[ref.SectionID]; ok {
			return fn, true
		}
		if t.defaultSection != nil {
			return t.defaultSection, true
		}
		return nil, false
	}
	fn, ok := t.phases[ref.Kind]
	return fn, ok && fn != nil
}
