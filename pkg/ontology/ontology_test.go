package ontology

import (
	"reflect"
	"testing"

	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/graph"
)

func addNode(t *testing.T, g *graph.Graph, id string, nodeType common.NodeType, label string, properties map[string]string) {
	t.Helper()
	node, err := common.NewNode(id, nodeType, label)
	if err != nil {
		t.Fatalf("NewNode(%s): %v", id, err)
	}
	for k, v := range properties {
		node.Properties[k] = v
	}
	if err := g.AddNode(node); err != nil {
		t.Fatalf("AddNode(%s): %v", id, err)
	}
}

func addEdge(t *testing.T, g *graph.Graph, id, source, target string, relation common.RelationType) {
	t.Helper()
	edge, err := common.NewEdge(id, source, target, relation, "")
	if err != nil {
		t.Fatalf("NewEdge(%s): %v", id, err)
	}
	if _, _, err := g.AddEdge(edge); err != nil {
		t.Fatalf("AddEdge(%s): %v", id, err)
	}
}

func TestMatchTags(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  []string
	}{
		{
			name:  "simple keyword",
			label: "Battery",
			want:  []string{"skizze:onto/electrical/battery"},
		},
		{
			name:  "keyword inside longer label",
			label: "4.7 kOhm resistor",
			want:  []string{"skizze:onto/electrical/resistor", "skizze:onto/electrical/resistance"},
		},
		{
			name:  "overlapping keywords dedupe by uri",
			label: "voltage (volt)",
			want:  []string{"skizze:onto/electrical/voltage"},
		},
		{
			name:  "mechanics label",
			label: "block on incline",
			want:  []string{"skizze:onto/mechanics/incline", "skizze:onto/mechanics/body"},
		},
		{
			name:  "no match",
			label: "thing",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchTags(tt.label)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MatchTags(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestAppendTags(t *testing.T) {
	existing := []string{"skizze:onto/electrical/battery"}
	merged, added := AppendTags(existing, []string{
		"skizze:onto/electrical/battery",
		"skizze:onto/electrical/voltage",
	})
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	want := []string{"skizze:onto/electrical/battery", "skizze:onto/electrical/voltage"}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("merged = %v, want %v", merged, want)
	}
}

func TestEnrich_AppendsAndDedupes(t *testing.T) {
	g := graph.New()
	addNode(t, g, "node_1", common.NodeObject, "battery", nil)
	addNode(t, g, "node_2", common.NodeQuantity, "voltage", nil)
	addNode(t, g, "node_3", common.NodeObject, "thing", nil)

	added, err := Enrich(g)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}

	node, _ := g.Node("node_1")
	if !reflect.DeepEqual(node.Metadata.OntologyTags, []string{"skizze:onto/electrical/battery"}) {
		t.Errorf("battery tags = %v", node.Metadata.OntologyTags)
	}
	node, _ = g.Node("node_3")
	if len(node.Metadata.OntologyTags) != 0 {
		t.Errorf("unmatched node got tags %v", node.Metadata.OntologyTags)
	}

	// a second pass finds every tag already present
	added, err = Enrich(g)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if added != 0 {
		t.Errorf("second pass added = %d, want 0", added)
	}
}

func TestDetectDomain(t *testing.T) {
	tests := []struct {
		name   string
		labels map[string]common.NodeType
		want   common.Domain
	}{
		{
			name: "electrical majority",
			labels: map[string]common.NodeType{
				"battery":  common.NodeObject,
				"resistor": common.NodeObject,
				"mass":     common.NodeQuantity,
			},
			want: common.DomainElectrical,
		},
		{
			name: "mechanics majority",
			labels: map[string]common.NodeType{
				"spring":  common.NodeObject,
				"gravity": common.NodeConcept,
				"circle":  common.NodeObject,
			},
			want: common.DomainMechanics,
		},
		{
			name: "tie falls back to generic",
			labels: map[string]common.NodeType{
				"battery": common.NodeObject,
				"spring":  common.NodeObject,
			},
			want: common.DomainGeneric,
		},
		{
			name: "untagged graph is generic",
			labels: map[string]common.NodeType{
				"thing": common.NodeObject,
				"stuff": common.NodeObject,
			},
			want: common.DomainGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.New()
			for label, nodeType := range tt.labels {
				addNode(t, g, "node_"+label, nodeType, label, nil)
			}
			if _, err := Enrich(g); err != nil {
				t.Fatalf("Enrich: %v", err)
			}
			if got := DetectDomain(g.Snapshot()); got != tt.want {
				t.Errorf("DetectDomain = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAnalyze_QuantityRules(t *testing.T) {
	g := graph.New()
	addNode(t, g, "node_q1", common.NodeQuantity, "V", map[string]string{"value": "12", "unit": "V"})
	addNode(t, g, "node_q2", common.NodeQuantity, "n", map[string]string{"value": "3"})
	addNode(t, g, "node_q3", common.NodeQuantity, "x", nil)
	addNode(t, g, "node_c1", common.NodeConcept, "volt", nil)
	addEdge(t, g, "edge_1", "node_q1", "node_c1", common.RelHasUnit)
	addEdge(t, g, "edge_2", "node_q2", "node_q3", common.RelRelatedTo)

	report := Analyze(g.Snapshot())

	if want := []string{"node_q2", "node_q3"}; !reflect.DeepEqual(report[RuleQuantityMissingUnit], want) {
		t.Errorf("%s = %v, want %v", RuleQuantityMissingUnit, report[RuleQuantityMissingUnit], want)
	}
	if want := []string{"node_q3"}; !reflect.DeepEqual(report[RuleQuantityMissingValue], want) {
		t.Errorf("%s = %v, want %v", RuleQuantityMissingValue, report[RuleQuantityMissingValue], want)
	}
}

func TestAnalyze_ImpliedPropertyAndIsolated(t *testing.T) {
	g := graph.New()
	// resistor with a linked quantity is covered, bare battery is not
	addNode(t, g, "node_r", common.NodeComponent, "resistor", nil)
	addNode(t, g, "node_q", common.NodeQuantity, "R", map[string]string{"value": "4700", "unit": "ohm"})
	addNode(t, g, "node_b", common.NodeObject, "battery", nil)
	addNode(t, g, "node_iso", common.NodeObject, "label", nil)
	addEdge(t, g, "edge_1", "node_r", "node_q", common.RelHasValue)
	addEdge(t, g, "edge_2", "node_b", "node_r", common.RelConnectedTo)

	report := Analyze(g.Snapshot())

	if want := []string{"node_b"}; !reflect.DeepEqual(report[RuleImpliedPropertyMissing], want) {
		t.Errorf("%s = %v, want %v", RuleImpliedPropertyMissing, report[RuleImpliedPropertyMissing], want)
	}
	if want := []string{"node_iso"}; !reflect.DeepEqual(report[RuleIsolatedNode], want) {
		t.Errorf("%s = %v, want %v", RuleIsolatedNode, report[RuleIsolatedNode], want)
	}
	if report.Total() != 2 {
		t.Errorf("Total = %d, want 2", report.Total())
	}
}

func TestAnalyze_CleanGraphIsEmpty(t *testing.T) {
	g := graph.New()
	addNode(t, g, "node_a", common.NodeObject, "thing one", nil)
	addNode(t, g, "node_b", common.NodeObject, "thing two", nil)
	addEdge(t, g, "edge_1", "node_a", "node_b", common.RelConnectedTo)

	report := Analyze(g.Snapshot())
	if len(report) != 0 {
		t.Errorf("report = %v, want empty", report)
	}
}
