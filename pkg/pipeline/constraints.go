package pipeline

import (
	"sort"
	"strings"

	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/graph"
)

// Axis parameter values for derived alignment constraints. Horizontal aligns
// participants on a shared row, vertical on a shared column.
const (
	axisHorizontal = 0.0
	axisVertical   = 1.0
)

// Target distances for derived proximity constraints. Connected components
// sit a hop apart; a quantity readout sits tight against its owner.
const (
	connectedDistance = 140.0
	readoutDistance   = 90.0
)

// DeriveConstraints maps the fused relations onto typed layout constraints.
// Wiring pulls endpoints near each other, series and parallel wiring
// additionally aligns them, parts stay close to their whole and inside the
// canvas, and value readouts hug the component that carries them. The
// derived set is deduplicated so re-stated relations never inflate the
// complexity score.
func DeriveConstraints(snapshot *graph.Snapshot) []common.Constraint {
	var constraints []common.Constraint
	seen := make(map[string]bool)

	add := func(kind common.ConstraintKind, participants []string, priority int, params map[string]float64) {
		constraint, err := common.NewConstraint(kind, participants, priority)
		if err != nil {
			return
		}
		for k, v := range params {
			constraint.Parameters[k] = v
		}
		key := constraintKey(constraint)
		if seen[key] {
			return
		}
		seen[key] = true
		constraints = append(constraints, constraint)
	}

	for _, edge := range snapshot.Edges {
		pair := []string{edge.SourceID, edge.TargetID}
		switch edge.Relation {
		case common.RelConnectedTo:
			add(common.ConstraintProximity, pair, 1, map[string]float64{"distance": connectedDistance})
			switch strings.ToLower(edge.Label) {
			case "series":
				add(common.ConstraintAlignment, pair, 2, map[string]float64{"axis": axisHorizontal})
			case "parallel":
				add(common.ConstraintAlignment, pair, 2, map[string]float64{"axis": axisVertical})
			}
		case common.RelActsOn:
			add(common.ConstraintProximity, pair, 1, nil)
		case common.RelPartOf:
			add(common.ConstraintProximity, pair, 2, nil)
			add(common.ConstraintContainment, []string{edge.SourceID}, 1, nil)
		case common.RelHasValue:
			add(common.ConstraintProximity, pair, 1, map[string]float64{"distance": readoutDistance})
		}
	}
	return constraints
}

// constraintKey is the dedup identity of a derived constraint: kind, the
// sorted participant set, and the alignment axis. Distance parameters are
// deliberately outside the key; the first derivation for a pair wins.
func constraintKey(c common.Constraint) string {
	ids := append([]string(nil), c.ParticipantIDs...)
	sort.Strings(ids)

	parts := append([]string{string(c.Kind)}, ids...)
	if c.Parameters["axis"] == axisVertical {
		parts = append(parts, "vertical")
	}
	return strings.Join(parts, "|")
}
