package prompt

import (
	"strings"
	"testing"
	"time"

	"ai-proposalgen-be/pkg/workflow/graph"
	"ai-proposalgen-be/pkg/workflow/state"
)

func testComposer(t *testing.T) *Composer {
	t.Helper()
	g, err := graph.New(map[state.SectionID][]state.SectionID{
		"problem_statement": {},
		"objectives":        {"problem_statement"},
		"methodology":       {"problem_statement", "objectives"},
	})
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}
	return NewComposer(g)
}

func workflowFixture() state.WorkflowState {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	st := state.New("doc-42", []state.SectionID{"problem_statement", "objectives", "methodology"}, now)
	st.SourceDocument.Text = "Rural clinics lack reliable cold-chain monitoring."
	st.Research = state.PhaseRecord{Status: state.StatusApproved, Result: "Cold-chain failures cause vaccine loss."}
	st.Solution = state.PhaseRecord{Status: state.StatusApproved, Result: "Low-cost LoRa sensors with SMS alerts."}
	st.Connections = state.PhaseRecord{Status: state.StatusApproved, Result: "Sensors answer the monitoring gap."}
	return st
}

func TestResearchPromptCarriesSourceDocument(t *testing.T) {
	c := testComposer(t)
	st := workflowFixture()

	got := c.Research(st, state.ResearchRef())

	for _, want := range []string{"<source_document>", "doc-42", "cold-chain monitoring", "<task_instructions>"} {
		if !strings.Contains(got, want) {
			t.Errorf("research prompt missing %q", want)
		}
	}
	if strings.Contains(got, "<research>") {
		t.Error("research prompt should not embed prior phase output")
	}
}

func TestPhasePromptsLayerPriorPhases(t *testing.T) {
	c := testComposer(t)
	st := workflowFixture()

	solution := c.Solution(st, state.SolutionRef())
	if !strings.Contains(solution, "<research>") || !strings.Contains(solution, "vaccine loss") {
		t.Error("solution prompt missing research phase")
	}
	if strings.Contains(solution, "<solution>") {
		t.Error("solution prompt embeds its own output slot")
	}

	connections := c.Connections(st, state.ConnectionsRef())
	if !strings.Contains(connections, "<research>") || !strings.Contains(connections, "<solution>") {
		t.Error("connections prompt missing prior phases")
	}
}

func TestSectionPromptIncludesAcceptedDependencies(t *testing.T) {
	c := testComposer(t)
	st := workflowFixture()
	for _, id := range []state.SectionID{"problem_statement", "objectives"} {
		rec := st.Sections[id]
		rec.Status = state.StatusApproved
		rec.Content = "Accepted text of " + string(id)
		st.Sections[id] = rec
	}

	got := c.Section(st, state.SectionRef("methodology"))

	for _, want := range []string{
		"<completed_sections>",
		"SECTION: problem_statement",
		"Accepted text of objectives",
		`Write the "methodology" section`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("section prompt missing %q", want)
		}
	}
}

func TestSectionPromptOmitsEmptyDependencyBlock(t *testing.T) {
	c := testComposer(t)
	st := workflowFixture()

	got := c.Section(st, state.SectionRef("problem_statement"))
	if strings.Contains(got, "<completed_sections>") {
		t.Error("root section prompt should not carry a dependency block")
	}
}

func TestSectionPromptCarriesReviewerGuidance(t *testing.T) {
	c := testComposer(t)
	st := workflowFixture()
	rec := st.Sections["objectives"]
	rec.Guidance = "Quantify each objective."
	st.Sections["objectives"] = rec
	ps := st.Sections["problem_statement"]
	ps.Status = state.StatusApproved
	ps.Content = "accepted"
	st.Sections["problem_statement"] = ps

	got := c.Section(st, state.SectionRef("objectives"))
	if !strings.Contains(got, "REVIEWER GUIDANCE") || !strings.Contains(got, "Quantify each objective.") {
		t.Error("guidance not embedded in section prompt")
	}
}

func TestEvaluationPromptAsksForJSON(t *testing.T) {
	c := testComposer(t)
	st := workflowFixture()

	got := c.Evaluation(st, state.SectionRef("objectives"))
	for _, want := range []string{`"scores"`, `"overallScore"`, "section:objectives", "ONLY a JSON object"} {
		if !strings.Contains(got, want) {
			t.Errorf("evaluation prompt missing %q", want)
		}
	}
}
