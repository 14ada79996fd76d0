package extract

import (
	"context"
	"testing"

	"github.com/skizzehq/skizze/pkg/common"
)

func findRelation(t *testing.T, extraction common.Extraction, subject string, relation common.RelationType, object string) common.ExtractedRelation {
	t.Helper()
	for _, r := range extraction.Relations {
		if r.Subject == subject && r.Relation == relation && r.Object == object {
			return r
		}
	}
	t.Fatalf("relation (%s, %s, %s) not found in %+v", subject, relation, object, extraction.Relations)
	return common.ExtractedRelation{}
}

func entityType(extraction common.Extraction, text string) (common.NodeType, bool) {
	for _, e := range extraction.Entities {
		if e.Text == text {
			return e.Type, true
		}
	}
	return "", false
}

func TestLexical_ConnectedTo(t *testing.T) {
	extraction, err := NewLexical().Extract(context.Background(), "A battery is connected to a resistor.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	findRelation(t, extraction, "battery", common.RelConnectedTo, "resistor")

	if typ, ok := entityType(extraction, "battery"); !ok || typ != common.NodeComponent {
		t.Fatalf("battery type = %v (found %v), want component", typ, ok)
	}
	if typ, ok := entityType(extraction, "resistor"); !ok || typ != common.NodeComponent {
		t.Fatalf("resistor type = %v (found %v), want component", typ, ok)
	}
	if extraction.Confidence != lexicalConfidence {
		t.Fatalf("Confidence = %v, want %v", extraction.Confidence, lexicalConfidence)
	}
}

func TestLexical_SeriesCarriesLabel(t *testing.T) {
	extraction, err := NewLexical().Extract(context.Background(), "The lamp is in series with the switch.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	r := findRelation(t, extraction, "lamp", common.RelConnectedTo, "switch")
	if r.Label != "series" {
		t.Fatalf("Label = %q, want series", r.Label)
	}
}

func TestLexical_ActsOn(t *testing.T) {
	extraction, err := NewLexical().Extract(context.Background(), "Gravity acts on the block.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	findRelation(t, extraction, "gravity", common.RelActsOn, "block")

	if typ, _ := entityType(extraction, "gravity"); typ != common.NodeForce {
		t.Fatalf("gravity type = %v, want force", typ)
	}
	if typ, _ := entityType(extraction, "block"); typ != common.NodeObject {
		t.Fatalf("block type = %v, want object", typ)
	}
}

func TestLexical_ConsistsOfFlipsAndSplits(t *testing.T) {
	extraction, err := NewLexical().Extract(context.Background(), "The circuit consists of a battery and a lamp.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	findRelation(t, extraction, "battery", common.RelPartOf, "circuit")
	findRelation(t, extraction, "lamp", common.RelPartOf, "circuit")
}

func TestLexical_RestsOnKeepsPrepositionLabel(t *testing.T) {
	extraction, err := NewLexical().Extract(context.Background(), "The block rests on the incline.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	r := findRelation(t, extraction, "block", common.RelRelatedTo, "incline")
	if r.Label != "on" {
		t.Fatalf("Label = %q, want on", r.Label)
	}
}

func TestLexical_UnknownEndpointsStayUntyped(t *testing.T) {
	extraction, err := NewLexical().Extract(context.Background(), "The widget is connected to the gizmo.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	findRelation(t, extraction, "widget", common.RelConnectedTo, "gizmo")
	if len(extraction.Entities) != 0 {
		t.Fatalf("Entities = %+v, want none for out-of-lexicon endpoints", extraction.Entities)
	}
}

func TestLexical_NoPatternsNoOutput(t *testing.T) {
	extraction, err := NewLexical().Extract(context.Background(), "Nothing interesting here.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(extraction.Entities) != 0 || len(extraction.Relations) != 0 {
		t.Fatalf("Extract() = %+v, want empty payload", extraction)
	}
}

func TestLexical_DesignatorsWithDigits(t *testing.T) {
	extraction, err := NewLexical().Extract(context.Background(), "r1 is in parallel with r2.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	r := findRelation(t, extraction, "r1", common.RelConnectedTo, "r2")
	if r.Label != "parallel" {
		t.Fatalf("Label = %q, want parallel", r.Label)
	}
}
