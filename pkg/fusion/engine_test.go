package fusion

import (
	"testing"

	"github.com/skizzehq/skizze/pkg/common"
)

func triple(subject string, relation common.RelationType, object string) common.ExtractedRelation {
	return common.ExtractedRelation{Subject: subject, Relation: relation, Object: object}
}

func TestIngestSource_Idempotent(t *testing.T) {
	extraction := common.Extraction{
		Entities: []common.ExtractedEntity{
			{Text: "battery", Type: common.NodeObject},
			{Text: "resistor", Type: common.NodeComponent},
		},
		Relations: []common.ExtractedRelation{
			triple("battery", common.RelConnectedTo, "resistor"),
		},
		Confidence: 0.8,
	}

	engine := NewEngine()
	if err := engine.IngestSource("adapter-a", extraction); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	nodes, edges := engine.NodeCount(), engine.EdgeCount()

	if err := engine.IngestSource("adapter-a", extraction); err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if engine.NodeCount() != nodes {
		t.Fatalf("re-ingest grew nodes: %d -> %d", nodes, engine.NodeCount())
	}
	if engine.EdgeCount() != edges {
		t.Fatalf("re-ingest grew edges: %d -> %d", edges, engine.EdgeCount())
	}

	snap := engine.Finalize()
	for _, node := range snap.Nodes {
		if len(node.Metadata.Provenance) != 1 {
			t.Fatalf("node %s provenance duplicated: %v", node.Label, node.Metadata.Provenance)
		}
	}
	for _, edge := range snap.Edges {
		if len(edge.Metadata.Provenance) != 1 {
			t.Fatalf("edge %s provenance duplicated: %v", edge.ID, edge.Metadata.Provenance)
		}
	}
}

func TestIngestSource_MonotonicGrowth(t *testing.T) {
	sources := []common.Extraction{
		{Entities: []common.ExtractedEntity{{Text: "battery"}}, Confidence: 0.7},
		{Entities: []common.ExtractedEntity{{Text: "resistor"}, {Text: "battery"}}, Confidence: 0.6},
		{Relations: []common.ExtractedRelation{triple("resistor", common.RelConnectedTo, "lamp")}, Confidence: 0.5},
	}

	previous := 0
	engine := NewEngine()
	for i, extraction := range sources {
		if err := engine.IngestSource("src", extraction); err != nil {
			t.Fatalf("ingest %d failed: %v", i, err)
		}
		if engine.NodeCount() < previous {
			t.Fatalf("node count shrank after source %d: %d -> %d", i, previous, engine.NodeCount())
		}
		previous = engine.NodeCount()
	}
}

func TestIngestSource_NoDanglingEdges(t *testing.T) {
	engine := NewEngine()
	err := engine.IngestSource("adapter", common.Extraction{
		Relations: []common.ExtractedRelation{
			triple("pulley", common.RelConnectedTo, "rope"),
		},
		Confidence: 0.5,
	})
	if err != nil {
		t.Fatal(err)
	}

	snap := engine.Finalize()
	ids := make(map[string]bool)
	for _, node := range snap.Nodes {
		ids[node.ID] = true
	}
	for _, edge := range snap.Edges {
		if !ids[edge.SourceID] || !ids[edge.TargetID] {
			t.Fatalf("edge %s references missing node", edge.ID)
		}
	}

	// Both endpoints were auto-created as placeholder Objects.
	if len(snap.Nodes) != 2 {
		t.Fatalf("expected 2 placeholder nodes, got %d", len(snap.Nodes))
	}
	for _, node := range snap.Nodes {
		if node.Type != common.NodeObject {
			t.Fatalf("placeholder node %s has type %s, want object", node.Label, node.Type)
		}
	}
}

func TestIngestSource_ConflictingScalars(t *testing.T) {
	engine := NewEngine()

	low := common.Extraction{
		Entities:   []common.ExtractedEntity{{Text: "spring", Properties: map[string]string{"k": "100"}}},
		Confidence: 0.4,
	}
	high := common.Extraction{
		Entities:   []common.ExtractedEntity{{Text: "spring", Properties: map[string]string{"k": "250"}}},
		Confidence: 0.9,
	}
	equal := common.Extraction{
		Entities:   []common.ExtractedEntity{{Text: "spring", Properties: map[string]string{"k": "999"}}},
		Confidence: 0.9,
	}

	if err := engine.IngestSource("low", low); err != nil {
		t.Fatal(err)
	}
	if err := engine.IngestSource("high", high); err != nil {
		t.Fatal(err)
	}
	if err := engine.IngestSource("equal", equal); err != nil {
		t.Fatal(err)
	}

	snap := engine.Finalize()
	if len(snap.Nodes) != 1 {
		t.Fatalf("expected 1 fused node, got %d", len(snap.Nodes))
	}
	node := snap.Nodes[0]

	// Higher confidence wins; an equal-confidence conflict keeps first-seen.
	if node.Properties["k"] != "250" {
		t.Fatalf("k = %s, want 250", node.Properties["k"])
	}
	if len(node.Metadata.Provenance) != 3 {
		t.Fatalf("expected 3 provenance records, got %d", len(node.Metadata.Provenance))
	}
	if node.Metadata.Provenance[0].SourceName != "low" {
		t.Fatalf("first-seen source not preserved at index 0: %v", node.Metadata.Provenance)
	}
	if node.Metadata.Confidence != 0.9 {
		t.Fatalf("node confidence = %f, want 0.9", node.Metadata.Confidence)
	}
}

func TestIngestSource_NonConflictingKeysUnion(t *testing.T) {
	engine := NewEngine()
	if err := engine.IngestSource("a", common.Extraction{
		Entities:   []common.ExtractedEntity{{Text: "block", Properties: map[string]string{"mass": "5"}}},
		Confidence: 0.6,
	}); err != nil {
		t.Fatal(err)
	}
	if err := engine.IngestSource("b", common.Extraction{
		Entities:   []common.ExtractedEntity{{Text: "block", Properties: map[string]string{"material": "steel"}}},
		Confidence: 0.3,
	}); err != nil {
		t.Fatal(err)
	}

	snap := engine.Finalize()
	node := snap.Nodes[0]
	if node.Properties["mass"] != "5" || node.Properties["material"] != "steel" {
		t.Fatalf("properties not unioned: %v", node.Properties)
	}
}

func TestIngestSource_ConflictingRelationsStayDistinct(t *testing.T) {
	engine := NewEngine()
	if err := engine.IngestSource("a", common.Extraction{
		Relations:  []common.ExtractedRelation{triple("wheel", common.RelPartOf, "cart")},
		Confidence: 0.5,
	}); err != nil {
		t.Fatal(err)
	}
	if err := engine.IngestSource("b", common.Extraction{
		Relations:  []common.ExtractedRelation{triple("wheel", common.RelConnectedTo, "cart")},
		Confidence: 0.5,
	}); err != nil {
		t.Fatal(err)
	}

	if engine.EdgeCount() != 2 {
		t.Fatalf("conflicting relations must stay distinct, got %d edges", engine.EdgeCount())
	}
}

func TestIngestSource_SharedEdgeMergesProvenance(t *testing.T) {
	same := []common.ExtractedRelation{triple("battery", common.RelConnectedTo, "resistor")}

	engine := NewEngine()
	if err := engine.IngestSource("a", common.Extraction{Relations: same, Confidence: 0.4}); err != nil {
		t.Fatal(err)
	}
	if err := engine.IngestSource("b", common.Extraction{Relations: same, Confidence: 0.8}); err != nil {
		t.Fatal(err)
	}

	snap := engine.Finalize()
	if len(snap.Edges) != 1 {
		t.Fatalf("identical relations must fuse, got %d edges", len(snap.Edges))
	}
	edge := snap.Edges[0]
	if len(edge.Metadata.Provenance) != 2 {
		t.Fatalf("expected 2 provenance records on fused edge, got %d", len(edge.Metadata.Provenance))
	}
	if edge.Metadata.Confidence != 0.8 {
		t.Fatalf("edge confidence = %f, want 0.8", edge.Metadata.Confidence)
	}
}

func TestIngestSource_MalformedItemsSkipped(t *testing.T) {
	engine := NewEngine()
	err := engine.IngestSource("messy", common.Extraction{
		Entities: []common.ExtractedEntity{
			{Text: ""},
			{Text: "valid"},
			{Text: "odd", Type: common.NodeType("widget")},
		},
		Relations: []common.ExtractedRelation{
			{Subject: "", Relation: common.RelRelatedTo, Object: "valid"},
			triple("valid", common.RelRelatedTo, "other"),
		},
		Confidence: 0.5,
	})
	if err != nil {
		t.Fatalf("malformed items must not abort ingestion: %v", err)
	}

	// valid + other survive; the empty and unknown-typed entities do not.
	if engine.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", engine.NodeCount())
	}
	if engine.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge, got %d", engine.EdgeCount())
	}
}

func TestIngestSource_AfterFinalizeRejected(t *testing.T) {
	engine := NewEngine()
	engine.Finalize()
	err := engine.IngestSource("late", common.Extraction{
		Entities:   []common.ExtractedEntity{{Text: "x"}},
		Confidence: 0.5,
	})
	if err == nil {
		t.Fatal("expected error ingesting after Finalize")
	}
}

// Scenario: one relation triple plus one scanned assignment yields a graph
// with the triple endpoints, the quantity, and its inferred neighbors.
func TestFuseTripleWithQuantityScan(t *testing.T) {
	engine := NewEngine()
	if err := engine.IngestSource("adapter", common.Extraction{
		Relations:  []common.ExtractedRelation{triple("battery", common.RelConnectedTo, "resistor")},
		Confidence: 0.7,
	}); err != nil {
		t.Fatal(err)
	}
	if err := engine.ScanText("The circuit has V = 12 V across the battery."); err != nil {
		t.Fatal(err)
	}

	snap := engine.Finalize()
	if len(snap.Nodes) < 3 {
		t.Fatalf("expected at least 3 nodes, got %d", len(snap.Nodes))
	}
	if len(snap.Edges) < 2 {
		t.Fatalf("expected at least 2 edges, got %d", len(snap.Edges))
	}

	labels := make(map[string]common.NodeType)
	for _, node := range snap.Nodes {
		labels[node.Label] = node.Type
	}
	if labels["battery"] != common.NodeObject {
		t.Fatalf("missing battery object, labels: %v", labels)
	}
	if labels["resistor"] != common.NodeObject {
		t.Fatalf("missing resistor object, labels: %v", labels)
	}
	if labels["V"] != common.NodeQuantity {
		t.Fatalf("missing quantity V, labels: %v", labels)
	}
}
