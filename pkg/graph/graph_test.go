package graph

import (
	"errors"
	"reflect"
	"testing"

	"github.com/skizzehq/skizze/pkg/common"
)

func mustNode(t *testing.T, id string, nodeType common.NodeType, label string) common.Node {
	t.Helper()
	node, err := common.NewNode(id, nodeType, label)
	if err != nil {
		t.Fatalf("NewNode(%q) failed: %v", label, err)
	}
	return node
}

func TestAddNode_RejectsDuplicates(t *testing.T) {
	g := New()

	if err := g.AddNode(mustNode(t, "n1", common.NodeObject, "battery")); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	err := g.AddNode(mustNode(t, "n1", common.NodeObject, "other"))
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode for id reuse, got %v", err)
	}
	err = g.AddNode(mustNode(t, "n2", common.NodeObject, "Battery"))
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode for key reuse, got %v", err)
	}
}

func TestAddEdge_RejectsDangling(t *testing.T) {
	g := New()
	if err := g.AddNode(mustNode(t, "n1", common.NodeObject, "battery")); err != nil {
		t.Fatal(err)
	}

	edge, err := common.NewEdge("e1", "n1", "ghost", common.RelConnectedTo, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := g.AddEdge(edge); !errors.Is(err, ErrDanglingEdge) {
		t.Fatalf("expected ErrDanglingEdge, got %v", err)
	}
	if g.EdgeCount() != 0 {
		t.Fatalf("dangling edge must never be stored, edge count = %d", g.EdgeCount())
	}
}

func TestAddEdge_Deduplicates(t *testing.T) {
	g := New()
	if err := g.AddNode(mustNode(t, "n1", common.NodeObject, "battery")); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(mustNode(t, "n2", common.NodeObject, "resistor")); err != nil {
		t.Fatal(err)
	}

	first, _ := common.NewEdge("e1", "n1", "n2", common.RelConnectedTo, "")
	id, created, err := g.AddEdge(first)
	if err != nil || !created || id != "e1" {
		t.Fatalf("first edge: id=%s created=%v err=%v", id, created, err)
	}

	dup, _ := common.NewEdge("e2", "n1", "n2", common.RelConnectedTo, "")
	id, created, err = g.AddEdge(dup)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("expected duplicate edge to be rejected")
	}
	if id != "e1" {
		t.Fatalf("expected stored edge id e1, got %s", id)
	}

	// A different relation on the same pair stays a distinct edge.
	other, _ := common.NewEdge("e3", "n1", "n2", common.RelPartOf, "")
	_, created, err = g.AddEdge(other)
	if err != nil || !created {
		t.Fatalf("distinct relation on same pair should insert: created=%v err=%v", created, err)
	}
	if g.EdgeCount() != 2 {
		t.Fatalf("expected 2 edges, got %d", g.EdgeCount())
	}
}

func TestSnapshot_ComponentsAndIsolated(t *testing.T) {
	g := New()
	for _, n := range []struct {
		id, label string
	}{
		{"n1", "battery"}, {"n2", "resistor"}, {"n3", "lamp"}, {"n4", "stray"},
	} {
		if err := g.AddNode(mustNode(t, n.id, common.NodeObject, n.label)); err != nil {
			t.Fatal(err)
		}
	}
	e1, _ := common.NewEdge("e1", "n1", "n2", common.RelConnectedTo, "")
	e2, _ := common.NewEdge("e2", "n2", "n3", common.RelConnectedTo, "")
	for _, e := range []common.Edge{e1, e2} {
		if _, _, err := g.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}

	snap := g.Snapshot()

	wantComponents := [][]string{{"n1", "n2", "n3"}, {"n4"}}
	if !reflect.DeepEqual(snap.Components, wantComponents) {
		t.Fatalf("components = %v, want %v", snap.Components, wantComponents)
	}
	if !reflect.DeepEqual(snap.Isolated, []string{"n4"}) {
		t.Fatalf("isolated = %v, want [n4]", snap.Isolated)
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	g := New()
	node := mustNode(t, "n1", common.NodeQuantity, "V")
	node.Properties["value"] = "12"
	node.Metadata.Provenance = []common.ProvenanceRecord{{SourceName: "scanner", Confidence: 0.95}}
	if err := g.AddNode(node); err != nil {
		t.Fatal(err)
	}

	snap := g.Snapshot()
	clone := snap.Clone()

	clone.Nodes[0].Properties["value"] = "999"
	clone.Nodes[0].Metadata.Provenance[0].Confidence = 0.1
	clone.Nodes[0].Metadata.OntologyTags = append(clone.Nodes[0].Metadata.OntologyTags, "tag")

	if snap.Nodes[0].Properties["value"] != "12" {
		t.Fatal("clone mutation leaked into original properties")
	}
	if snap.Nodes[0].Metadata.Provenance[0].Confidence != 0.95 {
		t.Fatal("clone mutation leaked into original provenance")
	}
	if len(snap.Nodes[0].Metadata.OntologyTags) != 0 {
		t.Fatal("clone mutation leaked into original tags")
	}
}

func TestSnapshot_RelationTypes(t *testing.T) {
	g := New()
	for _, n := range []struct{ id, label string }{{"n1", "a"}, {"n2", "b"}, {"n3", "c"}} {
		if err := g.AddNode(mustNode(t, n.id, common.NodeObject, n.label)); err != nil {
			t.Fatal(err)
		}
	}
	e1, _ := common.NewEdge("e1", "n1", "n2", common.RelConnectedTo, "")
	e2, _ := common.NewEdge("e2", "n2", "n3", common.RelConnectedTo, "")
	e3, _ := common.NewEdge("e3", "n1", "n3", common.RelPartOf, "")
	for _, e := range []common.Edge{e1, e2, e3} {
		if _, _, err := g.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}

	if got := g.Snapshot().RelationTypes(); got != 2 {
		t.Fatalf("RelationTypes = %d, want 2", got)
	}
}
