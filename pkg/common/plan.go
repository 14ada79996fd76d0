package common

import (
	"fmt"
	"time"
)

// Strategy names the layout-solving approach chosen for a plan.
type Strategy string

const (
	StrategyDirect           Strategy = "DIRECT"
	StrategyConstraintSolver Strategy = "CONSTRAINT_SOLVER"
	StrategySymbolicPhysics  Strategy = "SYMBOLIC_PHYSICS"
	StrategyHybrid           Strategy = "HYBRID"
	StrategyHeuristic        Strategy = "HEURISTIC"
)

// Domain names the problem domain a statement belongs to. The domain decides
// whether closed-form symbolic placement is available.
type Domain string

const (
	DomainElectrical Domain = "electrical"
	DomainMechanics  Domain = "mechanics"
	DomainGeometry   Domain = "geometry"
	DomainGeneric    Domain = "generic"
)

// ConstraintKind classifies a global layout constraint.
type ConstraintKind string

const (
	ConstraintAlignment   ConstraintKind = "alignment"
	ConstraintProximity   ConstraintKind = "proximity"
	ConstraintSeparation  ConstraintKind = "separation"
	ConstraintContainment ConstraintKind = "containment"
	ConstraintFixed       ConstraintKind = "fixed"
)

// Valid reports whether k is one of the known constraint kinds.
func (k ConstraintKind) Valid() bool {
	switch k {
	case ConstraintAlignment, ConstraintProximity, ConstraintSeparation, ConstraintContainment, ConstraintFixed:
		return true
	}
	return false
}

// Constraint is a typed global layout constraint over one or more plan
// entities. Parameters are kind-specific (e.g. "axis" for alignment,
// "distance" for separation). Higher priority constraints are satisfied
// first by the relaxation back-end.
type Constraint struct {
	Kind           ConstraintKind     `json:"kind"`
	ParticipantIDs []string           `json:"participant_ids"`
	Parameters     map[string]float64 `json:"parameters,omitempty"`
	Priority       int                `json:"priority"`
}

// NewConstraint builds a validated constraint.
func NewConstraint(kind ConstraintKind, participants []string, priority int) (Constraint, error) {
	if !kind.Valid() {
		return Constraint{}, fmt.Errorf("unknown constraint kind %q", kind)
	}
	if len(participants) == 0 {
		return Constraint{}, fmt.Errorf("constraint has no participants")
	}
	return Constraint{
		Kind:           kind,
		ParticipantIDs: participants,
		Parameters:     map[string]float64{},
		Priority:       priority,
	}, nil
}

// Position is a solved 2D placement for one entity.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayoutHints accumulates partial placement decisions for the downstream
// scene stage. Positions map entity ids to solved coordinates; Styles carry
// per-entity style hints (shape, emphasis).
type LayoutHints struct {
	Positions map[string]Position `json:"positions,omitempty"`
	Styles    map[string]string   `json:"styles,omitempty"`
}

// PlanMetadata records request-level facts about a plan: the original
// statement, the extractor sources that contributed, and creation time.
type PlanMetadata struct {
	Statement string    `json:"statement"`
	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DiagramPlan is the solver-ready representation of a fused problem
// statement. Entities, Relations, and GlobalConstraints are immutable once
// fusion completes; LayoutHints accumulates contributions from the solver
// orchestrator.
type DiagramPlan struct {
	ID                string       `json:"id"`
	ComplexityScore   float64      `json:"complexity_score"`
	Strategy          Strategy     `json:"strategy"`
	Domain            Domain       `json:"domain"`
	Entities          []Node       `json:"entities"`
	Relations         []Edge       `json:"relations"`
	GlobalConstraints []Constraint `json:"global_constraints,omitempty"`
	LayoutHints       LayoutHints  `json:"layout_hints"`
	Metadata          PlanMetadata `json:"metadata"`
}

// Entity returns the plan entity with the given id, if present.
func (p *DiagramPlan) Entity(id string) (Node, bool) {
	for _, n := range p.Entities {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
