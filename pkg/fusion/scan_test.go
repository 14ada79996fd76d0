package fusion

import (
	"testing"

	"github.com/skizzehq/skizze/pkg/common"
)

func findEntity(extraction common.Extraction, text string) (common.ExtractedEntity, bool) {
	for _, entity := range extraction.Entities {
		if entity.Text == text {
			return entity, true
		}
	}
	return common.ExtractedEntity{}, false
}

func hasRelation(extraction common.Extraction, subject string, relation common.RelationType, object string) bool {
	for _, r := range extraction.Relations {
		if r.Subject == subject && r.Relation == relation && r.Object == object {
			return true
		}
	}
	return false
}

func TestScanTextQuantities_Assignment(t *testing.T) {
	extraction := ScanTextQuantities("A circuit with V = 12 V and R1 = 4.7 kΩ in series.")

	v, ok := findEntity(extraction, "V")
	if !ok {
		t.Fatalf("missing quantity V: %+v", extraction.Entities)
	}
	if v.Type != common.NodeQuantity {
		t.Fatalf("V type = %s, want quantity", v.Type)
	}
	if v.Properties["value"] != "12" || v.Properties["unit"] != "V" {
		t.Fatalf("V properties = %v", v.Properties)
	}

	r1, ok := findEntity(extraction, "R1")
	if !ok {
		t.Fatalf("missing quantity R1: %+v", extraction.Entities)
	}
	if r1.Properties["value"] != "4.7" || r1.Properties["unit"] != "kΩ" {
		t.Fatalf("R1 properties = %v", r1.Properties)
	}

	if !hasRelation(extraction, "voltage source", common.RelHasValue, "V") {
		t.Fatalf("missing has_value relation for V: %+v", extraction.Relations)
	}
	if !hasRelation(extraction, "V", common.RelHasUnit, "volt") {
		t.Fatalf("missing has_unit relation for V: %+v", extraction.Relations)
	}
	// kΩ canonicalizes to ohm through SI-prefix stripping.
	if !hasRelation(extraction, "R1", common.RelHasUnit, "ohm") {
		t.Fatalf("missing has_unit relation for R1: %+v", extraction.Relations)
	}
	if _, ok := findEntity(extraction, "resistor"); !ok {
		t.Fatalf("missing inferred resistor component: %+v", extraction.Entities)
	}
}

func TestScanTextQuantities_Narrative(t *testing.T) {
	extraction := ScanTextQuantities("A block with a mass of 5 kg rests on a plane.")

	mass, ok := findEntity(extraction, "mass")
	if !ok {
		t.Fatalf("missing quantity mass: %+v", extraction.Entities)
	}
	if mass.Properties["value"] != "5" || mass.Properties["unit"] != "kg" {
		t.Fatalf("mass properties = %v", mass.Properties)
	}
	if !hasRelation(extraction, "body", common.RelHasValue, "mass") {
		t.Fatalf("missing inferred component relation: %+v", extraction.Relations)
	}
	if !hasRelation(extraction, "mass", common.RelHasUnit, "kilogram") {
		t.Fatalf("missing has_unit relation: %+v", extraction.Relations)
	}
}

func TestScanTextQuantities_NoUnit(t *testing.T) {
	extraction := ScanTextQuantities("Let n = 3 in the following.")

	n, ok := findEntity(extraction, "n")
	if !ok {
		t.Fatalf("missing quantity n: %+v", extraction.Entities)
	}
	if _, hasUnit := n.Properties["unit"]; hasUnit {
		t.Fatalf("expected no unit property, got %v", n.Properties)
	}
	for _, r := range extraction.Relations {
		if r.Relation == common.RelHasUnit && r.Subject == "n" {
			t.Fatalf("unexpected has_unit relation: %+v", r)
		}
	}
}

func TestScanTextQuantities_Deterministic(t *testing.T) {
	text := "V = 12 V, I = 2 A, and a resistance of 6 Ω."

	first := ScanTextQuantities(text)
	for i := 0; i < 5; i++ {
		again := ScanTextQuantities(text)
		if len(again.Entities) != len(first.Entities) || len(again.Relations) != len(first.Relations) {
			t.Fatalf("scan is not deterministic: run %d differs", i)
		}
		for j := range first.Entities {
			if again.Entities[j].Text != first.Entities[j].Text {
				t.Fatalf("entity order changed at %d: %s vs %s", j, again.Entities[j].Text, first.Entities[j].Text)
			}
		}
	}
}

func TestScanTextQuantities_DuplicateSymbolOnce(t *testing.T) {
	extraction := ScanTextQuantities("V = 12 V at the start and V = 12 V at the end.")

	count := 0
	for _, entity := range extraction.Entities {
		if entity.Text == "V" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("duplicate symbol emitted %d times, want 1", count)
	}
}

func TestScanTextQuantities_Empty(t *testing.T) {
	extraction := ScanTextQuantities("No numbers live here.")
	if len(extraction.Entities) != 0 {
		t.Fatalf("expected no entities, got %+v", extraction.Entities)
	}
}

func TestCanonicalUnit(t *testing.T) {
	tests := []struct {
		unit string
		want string
	}{
		{unit: "V", want: "volt"},
		{unit: "kΩ", want: "ohm"},
		{unit: "Ω", want: "ohm"},
		{unit: "kg", want: "kilogram"},
		{unit: "Hz", want: "hertz"},
		{unit: "flibbles", want: "flibbles"},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			if got := canonicalUnit(tt.unit); got != tt.want {
				t.Fatalf("canonicalUnit(%q) = %q, want %q", tt.unit, got, tt.want)
			}
		})
	}
}
