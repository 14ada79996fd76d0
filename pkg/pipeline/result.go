package pipeline

import (
	"github.com/skizzehq/skizze/pkg/cache"
	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/graph"
	"github.com/skizzehq/skizze/pkg/ontology"
	"github.com/skizzehq/skizze/pkg/refine"
)

// Result is the complete outcome of one planning run: the solver-ready plan,
// the realized and refined scene, the frozen knowledge graph, the gap report,
// the refinement outcome with its confidence, pipeline-level findings, and
// the per-stage trace. Results are what the cache stores and the persistence
// layer serializes.
type Result struct {
	Plan     *common.DiagramPlan `json:"plan"`
	Scene    *common.Scene       `json:"scene"`
	Snapshot *graph.Snapshot     `json:"snapshot"`
	Gaps     ontology.Report     `json:"gaps,omitempty"`
	Outcome  refine.Outcome      `json:"outcome"`
	Findings []common.Finding    `json:"findings,omitempty"`
	Trace    []TraceEntry        `json:"trace,omitempty"`
}

// Confidence returns the refinement confidence of the run.
func (r *Result) Confidence() float64 {
	return r.Outcome.Confidence
}

// Clone returns a deep copy. The shared cache stores and serves clones so no
// caller can mutate another caller's result.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	return &Result{
		Plan:     clonePlan(r.Plan),
		Scene:    cloneScene(r.Scene),
		Snapshot: r.Snapshot.Clone(),
		Gaps:     cloneGaps(r.Gaps),
		Outcome:  cloneOutcome(r.Outcome),
		Findings: cloneFindings(r.Findings),
		Trace:    cloneTrace(r.Trace),
	}
}

// NewResultCache builds the shared planner cache. Size <= 0 falls back to
// the cache default.
func NewResultCache(size int) (*cache.Cache[*Result], error) {
	return cache.New(cache.NewCacheParams[*Result]{
		Size:  size,
		Clone: (*Result).Clone,
	})
}

func clonePlan(plan *common.DiagramPlan) *common.DiagramPlan {
	if plan == nil {
		return nil
	}
	clone := *plan

	clone.Entities = make([]common.Node, len(plan.Entities))
	for i, node := range plan.Entities {
		clone.Entities[i] = cloneNode(node)
	}
	clone.Relations = make([]common.Edge, len(plan.Relations))
	for i, edge := range plan.Relations {
		clone.Relations[i] = cloneEdge(edge)
	}
	clone.GlobalConstraints = make([]common.Constraint, len(plan.GlobalConstraints))
	for i, constraint := range plan.GlobalConstraints {
		clone.GlobalConstraints[i] = cloneConstraint(constraint)
	}
	clone.LayoutHints = cloneHints(plan.LayoutHints)
	clone.Metadata.Sources = append([]string(nil), plan.Metadata.Sources...)
	return &clone
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

func cloneConstraint(constraint common.Constraint) common.Constraint {
	clone := constraint
	clone.ParticipantIDs = append([]string(nil), constraint.ParticipantIDs...)
	if constraint.Parameters != nil {
		clone.Parameters = make(map[string]float64, len(constraint.Parameters))
		for k, v := range constraint.Parameters {
			clone.Parameters[k] = v
		}
	}
	return clone
}

func cloneHints(hints common.LayoutHints) common.LayoutHints {
	clone := common.LayoutHints{}
	if hints.Positions != nil {
		clone.Positions = make(map[string]common.Position, len(hints.Positions))
		for id, position := range hints.Positions {
			clone.Positions[id] = position
		}
	}
	if hints.Styles != nil {
		clone.Styles = make(map[string]string, len(hints.Styles))
		for id, style := range hints.Styles {
			clone.Styles[id] = style
		}
	}
	return clone
}

func cloneScene(s *common.Scene) *common.Scene {
	if s == nil {
		return nil
	}
	clone := &common.Scene{
		Width:       s.Width,
		Height:      s.Height,
		Connections: append([]common.SceneConnection(nil), s.Connections...),
	}
	clone.Entities = make([]*common.SceneEntity, len(s.Entities))
	for i, entity := range s.Entities {
		copied := *entity
		if entity.Position != nil {
			position := *entity.Position
			copied.Position = &position
		}
		if entity.Style != nil {
			copied.Style = make(map[string]string, len(entity.Style))
			for k, v := range entity.Style {
				copied.Style[k] = v
			}
		}
		clone.Entities[i] = &copied
	}
	return clone
}

func cloneGaps(gaps ontology.Report) ontology.Report {
	if gaps == nil {
		return nil
	}
	clone := make(ontology.Report, len(gaps))
	for rule, ids := range gaps {
		clone[rule] = append([]string(nil), ids...)
	}
	return clone
}

func cloneOutcome(outcome refine.Outcome) refine.Outcome {
	clone := outcome
	clone.Findings = cloneFindings(outcome.Findings)
	clone.Iterations = make([]refine.Iteration, len(outcome.Iterations))
	for i, iteration := range outcome.Iterations {
		copied := iteration
		copied.Findings = cloneFindings(iteration.Findings)
		clone.Iterations[i] = copied
	}
	return clone
}

func cloneFindings(findings []common.Finding) []common.Finding {
	if findings == nil {
		return nil
	}
	clone := make([]common.Finding, len(findings))
	for i, finding := range findings {
		copied := finding
		copied.OffendingIDs = append([]string(nil), finding.OffendingIDs...)
		clone[i] = copied
	}
	return clone
}

func cloneTrace(entries []TraceEntry) []TraceEntry {
	if entries == nil {
		return nil
	}
	clone := make([]TraceEntry, len(entries))
	for i, entry := range entries {
		copied := entry
		if entry.Summary != nil {
			copied.Summary = make(map[string]string, len(entry.Summary))
			for k, v := range entry.Summary {
				copied.Summary[k] = v
			}
		}
		copied.Findings = cloneFindings(entry.Findings)
		clone[i] = copied
	}
	return clone
}
