package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/skizzehq/skizze/pkg/common"
)

var (
	// ErrNodeNotFound is returned when an operation references an unknown node id.
	ErrNodeNotFound = errors.New("graph: node not found")
	// ErrDanglingEdge is returned when an edge references a node id that is not
	// in the graph. Dangling edges are rejected at insertion, never stored.
	ErrDanglingEdge = errors.New("graph: edge references missing node")
	// ErrDuplicateNode is returned when a node id is inserted twice.
	ErrDuplicateNode = errors.New("graph: duplicate node id")
)

// Graph is the attributed knowledge graph for a single request. It is owned
// by that request's pipeline; fusion is the single writer, later stages read
// the immutable snapshot returned by Finalize. The mutex guards the maps so
// concurrent readers of a still-fusing graph cannot observe torn state.
type Graph struct {
	mu     sync.RWMutex
	nodes  map[string]*common.Node
	byKey  map[string]string
	edges  map[string]*common.Edge
	degree map[string]int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:  make(map[string]*common.Node),
		byKey:  make(map[string]string),
		edges:  make(map[string]*common.Edge),
		degree: make(map[string]int),
	}
}

// AddNode inserts a node. The id and the fusion key (normalized label + type)
// must both be new; fusing an existing mention goes through NodeByKey +
// UpdateNode instead.
func (g *Graph) AddNode(node common.Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[node.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
	}
	key := node.Key()
	if _, exists := g.byKey[key]; exists {
		return fmt.Errorf("%w: key %s", ErrDuplicateNode, key)
	}

	stored := node
	g.nodes[node.ID] = &stored
	g.byKey[key] = node.ID
	return nil
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (common.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.nodes[id]
	if !ok {
		return common.Node{}, false
	}
	return *node, true
}

// NodeByKey resolves a fusion key (normalized label + type) to its node.
func (g *Graph) NodeByKey(key string) (common.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	id, ok := g.byKey[key]
	if !ok {
		return common.Node{}, false
	}
	return *g.nodes[id], true
}

// UpdateNode replaces the stored node with the same id. The fusion key of a
// node never changes after insertion, so only properties and metadata move.
func (g *Graph) UpdateNode(node common.Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[node.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, node.ID)
	}
	stored := node
	g.nodes[node.ID] = &stored
	return nil
}

// AddEdge inserts an edge after verifying both endpoints exist. Edges are
// deduplicated on (source, target, relation, label): inserting an existing
// edge returns the stored edge id and false instead of creating a duplicate.
func (g *Graph) AddEdge(edge common.Edge) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[edge.SourceID]; !ok {
		return "", false, fmt.Errorf("%w: source %s", ErrDanglingEdge, edge.SourceID)
	}
	if _, ok := g.nodes[edge.TargetID]; !ok {
		return "", false, fmt.Errorf("%w: target %s", ErrDanglingEdge, edge.TargetID)
	}

	key := edge.Key()
	if existing, ok := g.edges[key]; ok {
		return existing.ID, false, nil
	}

	stored := edge
	g.edges[key] = &stored
	g.degree[edge.SourceID]++
	g.degree[edge.TargetID]++
	return edge.ID, true, nil
}

// Edge returns a copy of the stored edge with the given dedup key.
func (g *Graph) Edge(key string) (common.Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edge, ok := g.edges[key]
	if !ok {
		return common.Edge{}, false
	}
	return *edge, true
}

// UpdateEdge replaces the stored edge with the same dedup key.
func (g *Graph) UpdateEdge(edge common.Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := edge.Key()
	if _, ok := g.edges[key]; !ok {
		return fmt.Errorf("graph: edge %s not found", key)
	}
	stored := edge
	g.edges[key] = &stored
	return nil
}

// Nodes returns all nodes sorted by id for deterministic iteration.
func (g *Graph) Nodes() []common.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]common.Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, *node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns all edges sorted by id for deterministic iteration.
func (g *Graph) Edges() []common.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := make([]common.Edge, 0, len(g.edges))
	for _, edge := range g.edges {
		edges = append(edges, *edge)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}
