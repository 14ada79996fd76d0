package common

import (
	"fmt"
	"strings"
)

// NodeType classifies a node in the fused knowledge graph.
type NodeType string

const (
	NodeObject    NodeType = "object"
	NodeQuantity  NodeType = "quantity"
	NodeConcept   NodeType = "concept"
	NodeComponent NodeType = "component"
	NodeForce     NodeType = "force"
	NodeParameter NodeType = "parameter"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeObject, NodeQuantity, NodeConcept, NodeComponent, NodeForce, NodeParameter:
		return true
	}
	return false
}

// RelationType classifies an edge in the fused knowledge graph.
type RelationType string

const (
	RelRelatedTo   RelationType = "related_to"
	RelHasValue    RelationType = "has_value"
	RelHasUnit     RelationType = "has_unit"
	RelPartOf      RelationType = "part_of"
	RelCauses      RelationType = "causes"
	RelConnectedTo RelationType = "connected_to"
	RelActsOn      RelationType = "acts_on"
)

// Valid reports whether r is one of the known relation types.
func (r RelationType) Valid() bool {
	switch r {
	case RelRelatedTo, RelHasValue, RelHasUnit, RelPartOf, RelCauses, RelConnectedTo, RelActsOn:
		return true
	}
	return false
}

// ProvenanceRecord names a contributing source and its confidence for one
// node, edge, or property value. Records are kept in ingestion order so the
// first-seen source is always at index 0.
type ProvenanceRecord struct {
	SourceName string  `json:"source_name"`
	Confidence float64 `json:"confidence"`
}

// Metadata carries the provenance trail, ontology tags, and combined
// confidence of a node or edge. Tags are append-only and deduplicated by URI.
type Metadata struct {
	Provenance   []ProvenanceRecord `json:"provenance,omitempty"`
	OntologyTags []string           `json:"ontology_tags,omitempty"`
	Confidence   float64            `json:"confidence"`
}

// Node is an entity, concept, or quantity in the fused knowledge graph.
// Node identity is normalized(label)+type; two mentions with the same
// normalized label and type fuse into a single node. Nodes are created during
// fusion; enrichment appends ontology tags and the refinement loop attaches
// positions to a companion scene entity, never to the node itself.
type Node struct {
	ID         string            `json:"id"`
	Type       NodeType          `json:"type"`
	Label      string            `json:"label"`
	Properties map[string]string `json:"properties,omitempty"`
	Metadata   Metadata          `json:"metadata"`
}

// NewNode builds a validated node. The label must be non-empty and the type
// must be a known variant.
func NewNode(id string, nodeType NodeType, label string) (Node, error) {
	if strings.TrimSpace(label) == "" {
		return Node{}, fmt.Errorf("node label is empty")
	}
	if !nodeType.Valid() {
		return Node{}, fmt.Errorf("unknown node type %q", nodeType)
	}
	return Node{
		ID:         id,
		Type:       nodeType,
		Label:      label,
		Properties: map[string]string{},
	}, nil
}

// Key returns the fusion identity of the node: normalized label + type.
func (n Node) Key() string {
	return NodeKey(n.Label, n.Type)
}

// NodeKey computes the fusion identity for a label/type pair. Labels are
// lowercased with whitespace collapsed so "  Battery " and "battery" fuse.
func NodeKey(label string, nodeType NodeType) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(label)), " ")
	return string(nodeType) + ":" + normalized
}

// Edge is a typed, directional relation between two nodes. Edges are created
// only during fusion and are deduplicated on (source, target, relation,
// label); the same node pair may carry several edges when sources disagree on
// the relation.
type Edge struct {
	ID       string       `json:"id"`
	SourceID string       `json:"source_id"`
	TargetID string       `json:"target_id"`
	Relation RelationType `json:"relation"`
	Label    string       `json:"label,omitempty"`
	Weight   float64      `json:"weight,omitempty"`
	Metadata Metadata     `json:"metadata"`
}

// NewEdge builds a validated edge. Endpoint existence is checked by the graph
// at insertion, not here.
func NewEdge(id, sourceID, targetID string, relation RelationType, label string) (Edge, error) {
	if sourceID == "" || targetID == "" {
		return Edge{}, fmt.Errorf("edge endpoints are empty")
	}
	if !relation.Valid() {
		return Edge{}, fmt.Errorf("unknown relation type %q", relation)
	}
	return Edge{
		ID:       id,
		SourceID: sourceID,
		TargetID: targetID,
		Relation: relation,
		Label:    label,
	}, nil
}

// Key returns the deduplication identity of the edge.
func (e Edge) Key() string {
	return e.SourceID + "|" + e.TargetID + "|" + string(e.Relation) + "|" + strings.ToLower(e.Label)
}
