package assess

import (
	"github.com/skizzehq/skizze/pkg/graph"
)

// Scoring policy. Each raw count passes through the saturating curve
// x/(x+k) so the score is monotone non-decreasing in every input and the
// weighted sum stays inside [0,1]. The weights sum to one; the k values mark
// the count at which a dimension contributes half its weight.
const (
	weightNodes       = 0.40
	weightEdges       = 0.30
	weightRelations   = 0.15
	weightConstraints = 0.15

	saturationNodes       = 24.0
	saturationEdges       = 32.0
	saturationRelations   = 6.0
	saturationConstraints = 8.0
)

// Inputs are the raw counts the complexity score is computed from.
type Inputs struct {
	Nodes         int
	Edges         int
	RelationTypes int
	Constraints   int
}

// SnapshotInputs collects score inputs from a finalized snapshot plus the
// derived global-constraint count.
func SnapshotInputs(snapshot *graph.Snapshot, constraints int) Inputs {
	return Inputs{
		Nodes:         len(snapshot.Nodes),
		Edges:         len(snapshot.Edges),
		RelationTypes: snapshot.RelationTypes(),
		Constraints:   constraints,
	}
}

// Score computes the complexity score in [0,1].
func Score(in Inputs) float64 {
	score := weightNodes*saturate(in.Nodes, saturationNodes) +
		weightEdges*saturate(in.Edges, saturationEdges) +
		weightRelations*saturate(in.RelationTypes, saturationRelations) +
		weightConstraints*saturate(in.Constraints, saturationConstraints)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func saturate(count int, k float64) float64 {
	if count <= 0 {
		return 0
	}
	x := float64(count)
	return x / (x + k)
}
