// Package prompt composes the model prompts for each unit of work from the
// current workflow state.
package prompt

import (
	"fmt"
	"strings"

	"ai-proposalgen-be/pkg/workflow/graph"
	"ai-proposalgen-be/pkg/workflow/state"
)

// Composer builds unit prompts. It consults the section graph so a section
// prompt carries the content of everything it depends on.
type Composer struct {
	graph *graph.Graph
}

func NewComposer(g *graph.Graph) *Composer {
	return &Composer{graph: g}
}

// Research asks for an analysis of the source document.
func (c *Composer) Research(st state.WorkflowState, _ state.ContentReference) string {
	var prompt strings.Builder

	writeSourceDocument(&prompt, st)

	prompt.WriteString("<task_instructions>\n")
	prompt.WriteString("You are a proposal analyst. Study the source document above and produce a research summary:\n")
	prompt.WriteString("1. The problem being addressed and who has it.\n")
	prompt.WriteString("2. Existing approaches and their shortcomings.\n")
	prompt.WriteString("3. Constraints, risks, and open questions.\n")
	prompt.WriteString("Answer in structured prose. Use ONLY the source document; do not invent facts.\n")
	prompt.WriteString("</task_instructions>\n")

	return prompt.String()
}

// Solution asks for a solution approach grounded in the research phase.
func (c *Composer) Solution(st state.WorkflowState, _ state.ContentReference) string {
	var prompt strings.Builder

	writeSourceDocument(&prompt, st)
	writePhase(&prompt, "research", st.Research)

	prompt.WriteString("<task_instructions>\n")
	prompt.WriteString("You are a proposal architect. Based on the research above, describe the proposed solution:\n")
	prompt.WriteString("1. The core approach and why it addresses the researched problem.\n")
	prompt.WriteString("2. Major components and how they interact.\n")
	prompt.WriteString("3. What makes this approach preferable to the alternatives named in the research.\n")
	prompt.WriteString("Stay consistent with the research; do not contradict it.\n")
	prompt.WriteString("</task_instructions>\n")

	return prompt.String()
}

// Connections asks how the research and solution tie together into a
// narrative the sections can share.
func (c *Composer) Connections(st state.WorkflowState, _ state.ContentReference) string {
	var prompt strings.Builder

	writeSourceDocument(&prompt, st)
	writePhase(&prompt, "research", st.Research)
	writePhase(&prompt, "solution", st.Solution)

	prompt.WriteString("<task_instructions>\n")
	prompt.WriteString("Identify the connecting threads between the research and the solution:\n")
	prompt.WriteString("1. Which solution component answers which researched problem.\n")
	prompt.WriteString("2. The narrative order the proposal sections should follow.\n")
	prompt.WriteString("3. Key terms that must be used consistently across sections.\n")
	prompt.WriteString("</task_instructions>\n")

	return prompt.String()
}

// Section asks for one proposal section, grounded in the phases and in the
// accepted content of every section it depends on.
func (c *Composer) Section(st state.WorkflowState, ref state.ContentReference) string {
	var prompt strings.Builder

	writeSourceDocument(&prompt, st)
	writePhase(&prompt, "research", st.Research)
	writePhase(&prompt, "solution", st.Solution)
	writePhase(&prompt, "connections", st.Connections)

	deps := c.graph.Dependencies(ref.SectionID)
	if len(deps) > 0 {
		prompt.WriteString("<completed_sections>\n")
		prompt.WriteString("These sections are already written. Stay consistent with them:\n\n")
		for _, dep := range deps {
			if rec, ok := st.Section(dep); ok && rec.Content != "" {
				prompt.WriteString(fmt.Sprintf("--- SECTION: %s ---\n", dep))
				prompt.WriteString(rec.Content)
				prompt.WriteString(fmt.Sprintf("\n--- END OF: %s ---\n\n", dep))
			}
		}
		prompt.WriteString("</completed_sections>\n\n")
	}

	prompt.WriteString("<task_instructions>\n")
	prompt.WriteString(fmt.Sprintf("Write the %q section of the proposal.\n", ref.SectionID))
	prompt.WriteString("1. Ground every claim in the material above.\n")
	prompt.WriteString("2. Do not repeat content that belongs to other sections.\n")
	prompt.WriteString("3. Write finished prose, not an outline.\n")

	if rec, ok := st.Section(ref.SectionID); ok && rec.Guidance != "" {
		prompt.WriteString("\nREVIEWER GUIDANCE (MUST FOLLOW):\n")
		prompt.WriteString(rec.Guidance)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</task_instructions>\n")

	return prompt.String()
}

// Evaluation asks the model to score a unit's content as structured JSON.
// The content under evaluation is appended by the engine.
func (c *Composer) Evaluation(st state.WorkflowState, ref state.ContentReference) string {
	var prompt strings.Builder

	writeSourceDocument(&prompt, st)

	prompt.WriteString("<task_instructions>\n")
	prompt.WriteString(fmt.Sprintf("You are a strict reviewer. Evaluate the %q content that follows the separator.\n", ref.String()))
	prompt.WriteString("Score each criterion from 0.0 to 1.0: accuracy, completeness, clarity, consistency.\n")
	prompt.WriteString("Respond with ONLY a JSON object, no prose:\n")
	prompt.WriteString(`{"scores": {"accuracy": 0.0, "completeness": 0.0, "clarity": 0.0, "consistency": 0.0}, "feedback": {"accuracy": "..."}, "overallScore": 0.0, "summary": "..."}`)
	prompt.WriteString("\n</task_instructions>")

	return prompt.String()
}

func writeSourceDocument(prompt *strings.Builder, st state.WorkflowState) {
	prompt.WriteString("<source_document>\n")
	prompt.WriteString(fmt.Sprintf("Document ID: %s\n\n", st.SourceDocument.ID))
	if st.SourceDocument.Text != "" {
		prompt.WriteString(st.SourceDocument.Text)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</source_document>\n\n")
}

func writePhase(prompt *strings.Builder, name string, rec state.PhaseRecord) {
	if rec.Result == "" {
		return
	}
	prompt.WriteString(fmt.Sprintf("<%s>\n", name))
	prompt.WriteString(rec.Result)
	prompt.WriteString(fmt.Sprintf("\n</%s>\n\n", name))
}
