package graph

import (
	"sort"

	"github.com/skizzehq/skizze/pkg/common"
)

// Snapshot is the immutable view of a finalized graph. Later pipeline stages
// and the shared result cache operate on snapshots only; the mutable Graph
// never leaves fusion.
type Snapshot struct {
	Nodes      []common.Node `json:"nodes"`
	Edges      []common.Edge `json:"edges"`
	Components [][]string    `json:"components"`
	Isolated   []string      `json:"isolated,omitempty"`
}

// Snapshot freezes the current graph state: nodes and edges in deterministic
// order, connected components, and isolated-node candidates.
func (g *Graph) Snapshot() *Snapshot {
	nodes := g.Nodes()
	edges := g.Edges()

	return &Snapshot{
		Nodes:      nodes,
		Edges:      edges,
		Components: connectedComponents(nodes, edges),
		Isolated:   isolatedNodes(nodes, edges),
	}
}

// Clone returns a deep copy. Cache reads hand out clones so callers can never
// mutate shared state.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	clone := &Snapshot{
		Nodes:      make([]common.Node, len(s.Nodes)),
		Edges:      make([]common.Edge, len(s.Edges)),
		Components: make([][]string, len(s.Components)),
		Isolated:   append([]string(nil), s.Isolated...),
	}
	for i, node := range s.Nodes {
		clone.Nodes[i] = cloneNode(node)
	}
	for i, edge := range s.Edges {
		clone.Edges[i] = cloneEdge(edge)
	}
	for i, component := range s.Components {
		clone.Components[i] = append([]string(nil), component...)
	}
	return clone
}

// RelationTypes returns the number of distinct relation types in the snapshot.
func (s *Snapshot) RelationTypes() int {
	seen := make(map[common.RelationType]bool)
	for _, edge := range s.Edges {
		seen[edge.Relation] = true
	}
	return len(seen)
}

// Node returns the snapshot node with the given id, if present.
func (s *Snapshot) Node(id string) (common.Node, bool) {
	for _, node := range s.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return common.Node{}, false
}

func cloneNode(node common.Node) common.Node {
	clone := node
	if node.Properties != nil {
		clone.Properties = make(map[string]string, len(node.Properties))
		for k, v := range node.Properties {
			clone.Properties[k] = v
		}
	}
	clone.Metadata = cloneMetadata(node.Metadata)
	return clone
}

func cloneEdge(edge common.Edge) common.Edge {
	clone := edge
	clone.Metadata = cloneMetadata(edge.Metadata)
	return clone
}

func cloneMetadata(meta common.Metadata) common.Metadata {
	clone := meta
	clone.Provenance = append([]common.ProvenanceRecord(nil), meta.Provenance...)
	clone.OntologyTags = append([]string(nil), meta.OntologyTags...)
	return clone
}

// connectedComponents groups node ids by undirected reachability. Components
// and their members are sorted so snapshots compare deterministically.
func connectedComponents(nodes []common.Node, edges []common.Edge) [][]string {
	parent := make(map[string]string, len(nodes))
	for _, node := range nodes {
		parent[node.ID] = node.ID
	}

	var find func(id string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for _, edge := range edges {
		union(edge.SourceID, edge.TargetID)
	}

	groups := make(map[string][]string)
	for _, node := range nodes {
		root := find(node.ID)
		groups[root] = append(groups[root], node.ID)
	}

	components := make([][]string, 0, len(groups))
	for _, members := range groups {
		sort.Strings(members)
		components = append(components, members)
	}
	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })
	return components
}

func isolatedNodes(nodes []common.Node, edges []common.Edge) []string {
	connected := make(map[string]bool)
	for _, edge := range edges {
		connected[edge.SourceID] = true
		connected[edge.TargetID] = true
	}

	var isolated []string
	for _, node := range nodes {
		if !connected[node.ID] {
			isolated = append(isolated, node.ID)
		}
	}
	sort.Strings(isolated)
	return isolated
}
