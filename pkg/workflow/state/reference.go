package state

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SectionID identifies one independently generated content unit.
type SectionID string

// ContentKind discriminates the variants of ContentReference.
type ContentKind string

const (
	KindResearch    ContentKind = "research"
	KindSolution    ContentKind = "solution"
	KindConnections ContentKind = "connections"
	KindSection     ContentKind = "section"
)

// ContentReference is a tagged reference to one unit of content: a top-level
// phase or a named section. It replaces string-matched dispatch so the router
// can switch exhaustively on Kind.
type ContentReference struct {
	Kind      ContentKind
	SectionID SectionID // set only when Kind == KindSection
}

func ResearchRef() ContentReference    { return ContentReference{Kind: KindResearch} }
func SolutionRef() ContentReference    { return ContentReference{Kind: KindSolution} }
func ConnectionsRef() ContentReference { return ContentReference{Kind: KindConnections} }

func SectionRef(id SectionID) ContentReference {
	return ContentReference{Kind: KindSection, SectionID: id}
}

// IsZero reports whether the reference points at nothing.
func (r ContentReference) IsZero() bool {
	return r.Kind == ""
}

// String renders the wire form: "research", "solution", "connections" or
// "section:<id>".
func (r ContentReference) String() string {
	if r.Kind == KindSection {
		return fmt.Sprintf("%s:%s", KindSection, r.SectionID)
	}
	return string(r.Kind)
}

// ParseContentReference is the inverse of String. It rejects anything that is
// not exactly one of the known forms.
func ParseContentReference(s string) (ContentReference, error) {
	switch ContentKind(s) {
	case KindResearch, KindSolution, KindConnections:
		return ContentReference{Kind: ContentKind(s)}, nil
	}
	if rest, ok := strings.CutPrefix(s, string(KindSection)+":"); ok && rest != "" {
		return SectionRef(SectionID(rest)), nil
	}
	return ContentReference{}, fmt.Errorf("invalid content reference %q", s)
}

func (r ContentReference) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *ContentReference) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ref, err := ParseContentReference(s)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}
