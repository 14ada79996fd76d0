package common

import "testing"

func TestNodeKey_Normalization(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		nodeType NodeType
		want     string
	}{
		{name: "lowercases", label: "Battery", nodeType: NodeObject, want: "object:battery"},
		{name: "collapses whitespace", label: "  ideal \t gas  ", nodeType: NodeConcept, want: "concept:ideal gas"},
		{name: "type distinguishes", label: "force", nodeType: NodeForce, want: "force:force"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NodeKey(tt.label, tt.nodeType)
			if got != tt.want {
				t.Fatalf("NodeKey(%q, %q) = %q, want %q", tt.label, tt.nodeType, got, tt.want)
			}
		})
	}
}

func TestNewNode_Validation(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		nodeType NodeType
		wantErr  bool
	}{
		{name: "valid", label: "resistor", nodeType: NodeComponent, wantErr: false},
		{name: "empty label", label: "   ", nodeType: NodeObject, wantErr: true},
		{name: "unknown type", label: "resistor", nodeType: NodeType("widget"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNode("n1", tt.nodeType, tt.label)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewNode(%q, %q) error = %v, wantErr %v", tt.nodeType, tt.label, err, tt.wantErr)
			}
		})
	}
}

func TestNewEdge_Validation(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		target   string
		relation RelationType
		wantErr  bool
	}{
		{name: "valid", source: "a", target: "b", relation: RelConnectedTo, wantErr: false},
		{name: "empty source", source: "", target: "b", relation: RelRelatedTo, wantErr: true},
		{name: "empty target", source: "a", target: "", relation: RelRelatedTo, wantErr: true},
		{name: "unknown relation", source: "a", target: "b", relation: RelationType("likes"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEdge("e1", tt.source, tt.target, tt.relation, "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEdge error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewConstraint_Validation(t *testing.T) {
	if _, err := NewConstraint(ConstraintAlignment, []string{"a", "b"}, 1); err != nil {
		t.Fatalf("expected valid constraint, got %v", err)
	}
	if _, err := NewConstraint(ConstraintKind("gravity"), []string{"a"}, 0); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := NewConstraint(ConstraintProximity, nil, 0); err == nil {
		t.Fatal("expected error for empty participants")
	}
}

func TestSceneLookups(t *testing.T) {
	scene := &Scene{
		Entities: []*SceneEntity{
			{ID: "a", Position: &Position{X: 1, Y: 2}},
			{ID: "b"},
		},
		Connections: []SceneConnection{
			{SourceID: "a", TargetID: "b"},
		},
	}

	if _, ok := scene.Entity("a"); !ok {
		t.Fatal("expected to find entity a")
	}
	if _, ok := scene.Entity("missing"); ok {
		t.Fatal("did not expect to find missing entity")
	}
	if !scene.HasConnection("a", "b") {
		t.Fatal("expected connection a-b")
	}
	if !scene.HasConnection("b", "a") {
		t.Fatal("expected connection lookup to be direction-agnostic")
	}
	if scene.HasConnection("a", "c") {
		t.Fatal("did not expect connection a-c")
	}
}

func TestCountBySeverity(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityError, Code: CodeStructuralMissing},
		{Severity: SeverityWarning, Code: CodeDomainOverlap},
		{Severity: SeverityError, Code: CodeDomainOutOfBounds},
	}

	errs, warns := CountBySeverity(findings)
	if errs != 2 || warns != 1 {
		t.Fatalf("CountBySeverity = (%d, %d), want (2, 1)", errs, warns)
	}
	if !HasErrors(findings) {
		t.Fatal("expected HasErrors to be true")
	}
	if HasErrors(findings[1:2]) {
		t.Fatal("expected HasErrors to be false for warnings only")
	}
}
