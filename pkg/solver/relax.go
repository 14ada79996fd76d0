package solver

import (
	"context"
	"math"
	"sort"

	"github.com/skizzehq/skizze/pkg/common"
)

const (
	relaxIterations = 120
	// iteration ends early once total movement falls below this
	relaxEpsilon = 0.5
	// mean residual violation above this reports unsatisfiable
	relaxTolerance = 24.0
	// fraction of the violation corrected per pass
	relaxStep = 0.3

	defaultProximityDistance  = 140.0
	defaultSeparationDistance = 160.0
)

type relaxBackend struct{}

// NewRelaxBackend returns the constraint-relaxation back-end: free entities
// seed on a grid, then every pass corrects a fraction of each constraint
// violation, higher priority constraints first. Conflicting constraints that
// keep the residual above tolerance report unsatisfiable.
func NewRelaxBackend() Backend {
	return relaxBackend{}
}

func (relaxBackend) Name() string {
	return BackendRelax
}

func (relaxBackend) Solve(ctx context.Context, req Request) (map[string]common.Position, bool, error) {
	free := req.Free()
	if len(free) == 0 {
		return map[string]common.Position{}, true, nil
	}

	working := make(map[string]common.Position, len(req.Entities))
	for id, position := range req.Fixed {
		working[id] = position
	}
	seedGrid(working, free)

	constraints := append([]common.Constraint(nil), req.Constraints...)
	sort.SliceStable(constraints, func(i, j int) bool {
		return constraints[i].Priority > constraints[j].Priority
	})

	for iteration := 0; iteration < relaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		moved := 0.0
		for _, constraint := range constraints {
			moved += applyConstraint(working, req.Fixed, constraint)
		}
		if moved < relaxEpsilon {
			break
		}
	}

	if meanResidual(working, req.Fixed, constraints) > relaxTolerance {
		return nil, false, nil
	}

	positions := make(map[string]common.Position, len(free))
	for _, entity := range free {
		positions[entity.ID] = working[entity.ID]
	}
	return positions, true, nil
}

// seedGrid lays unpinned entities on a square-ish grid inside the margins.
func seedGrid(working map[string]common.Position, free []common.Node) {
	columns := int(math.Ceil(math.Sqrt(float64(len(free)))))
	spacingX := (common.CanvasWidth - 2*common.CanvasMargin) / float64(columns+1)
	rows := (len(free) + columns - 1) / columns
	spacingY := (common.CanvasHeight - 2*common.CanvasMargin) / float64(rows+1)

	for i, entity := range free {
		column := i % columns
		row := i / columns
		working[entity.ID] = common.Position{
			X: common.CanvasMargin + spacingX*float64(column+1),
			Y: common.CanvasMargin + spacingY*float64(row+1),
		}
	}
}

// applyConstraint corrects a fraction of the constraint violation and
// returns the total distance moved. Pinned entities never move; they anchor
// the correction instead.
func applyConstraint(working map[string]common.Position, pinned map[string]common.Position, constraint common.Constraint) float64 {
	switch constraint.Kind {
	case common.ConstraintFixed:
		return applyFixed(working, pinned, constraint)
	case common.ConstraintAlignment:
		return applyAlignment(working, pinned, constraint)
	case common.ConstraintProximity:
		return applyPairwise(working, pinned, constraint, proximityDistance(constraint), false)
	case common.ConstraintSeparation:
		return applyPairwise(working, pinned, constraint, separationDistance(constraint), true)
	case common.ConstraintContainment:
		return applyContainment(working, pinned, constraint)
	}
	return 0
}

func applyFixed(working map[string]common.Position, pinned map[string]common.Position, constraint common.Constraint) float64 {
	target := common.Position{X: constraint.Parameters["x"], Y: constraint.Parameters["y"]}
	moved := 0.0
	for _, id := range constraint.ParticipantIDs {
		current, ok := working[id]
		if !ok {
			continue
		}
		if _, isPinned := pinned[id]; isPinned {
			continue
		}
		moved += distance(current, target)
		working[id] = target
	}
	return moved
}

func applyAlignment(working map[string]common.Position, pinned map[string]common.Position, constraint common.Constraint) float64 {
	vertical := constraint.Parameters["axis"] == 1
	sum, count := 0.0, 0
	for _, id := range constraint.ParticipantIDs {
		position, ok := working[id]
		if !ok {
			continue
		}
		if vertical {
			sum += position.X
		} else {
			sum += position.Y
		}
		count++
	}
	if count < 2 {
		return 0
	}
	mean := sum / float64(count)

	moved := 0.0
	for _, id := range constraint.ParticipantIDs {
		position, ok := working[id]
		if !ok {
			continue
		}
		if _, isPinned := pinned[id]; isPinned {
			continue
		}
		if vertical {
			delta := (mean - position.X) * relaxStep
			position.X += delta
			moved += math.Abs(delta)
		} else {
			delta := (mean - position.Y) * relaxStep
			position.Y += delta
			moved += math.Abs(delta)
		}
		working[id] = position
	}
	return moved
}

// applyPairwise pulls pairs together (proximity) or pushes them apart
// (separation) toward the target distance.
func applyPairwise(working map[string]common.Position, pinned map[string]common.Position, constraint common.Constraint, target float64, apart bool) float64 {
	moved := 0.0
	ids := constraint.ParticipantIDs
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, okA := working[ids[i]]
			b, okB := working[ids[j]]
			if !okA || !okB {
				continue
			}

			dist := distance(a, b)
			var violation float64
			if apart {
				violation = target - dist
			} else {
				violation = dist - target
			}
			if violation <= 0 {
				continue
			}

			dx, dy := b.X-a.X, b.Y-a.Y
			if dist < 1e-9 {
				// coincident pair: pick a deterministic push axis
				dx, dy, dist = 1, 0, 1
			}
			ux, uy := dx/dist, dy/dist
			shift := violation * relaxStep
			if apart {
				shift = -shift
			}

			_, pinnedA := pinned[ids[i]]
			_, pinnedB := pinned[ids[j]]
			switch {
			case pinnedA && pinnedB:
				continue
			case pinnedA:
				b.X -= ux * shift
				b.Y -= uy * shift
				working[ids[j]] = b
				moved += math.Abs(shift)
			case pinnedB:
				a.X += ux * shift
				a.Y += uy * shift
				working[ids[i]] = a
				moved += math.Abs(shift)
			default:
				half := shift / 2
				a.X += ux * half
				a.Y += uy * half
				b.X -= ux * half
				b.Y -= uy * half
				working[ids[i]] = a
				working[ids[j]] = b
				moved += math.Abs(shift)
			}
		}
	}
	return moved
}

func applyContainment(working map[string]common.Position, pinned map[string]common.Position, constraint common.Constraint) float64 {
	moved := 0.0
	for _, id := range constraint.ParticipantIDs {
		position, ok := working[id]
		if !ok {
			continue
		}
		if _, isPinned := pinned[id]; isPinned {
			continue
		}
		clamped := clampToCanvas(position)
		moved += distance(position, clamped)
		working[id] = clamped
	}
	return moved
}

// meanResidual is the average remaining violation per constraint. Constraints
// whose participants are all pinned are outside this back-end's control and
// do not count against its verdict.
func meanResidual(working map[string]common.Position, pinned map[string]common.Position, constraints []common.Constraint) float64 {
	total, counted := 0.0, 0
	for _, constraint := range constraints {
		if allPinned(constraint, pinned) {
			continue
		}
		total += residual(working, constraint)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

func allPinned(constraint common.Constraint, pinned map[string]common.Position) bool {
	for _, id := range constraint.ParticipantIDs {
		if _, ok := pinned[id]; !ok {
			return false
		}
	}
	return true
}

func residual(working map[string]common.Position, constraint common.Constraint) float64 {
	switch constraint.Kind {
	case common.ConstraintFixed:
		target := common.Position{X: constraint.Parameters["x"], Y: constraint.Parameters["y"]}
		worst := 0.0
		for _, id := range constraint.ParticipantIDs {
			if position, ok := working[id]; ok {
				worst = math.Max(worst, distance(position, target))
			}
		}
		return worst

	case common.ConstraintAlignment:
		vertical := constraint.Parameters["axis"] == 1
		sum, count := 0.0, 0
		for _, id := range constraint.ParticipantIDs {
			if position, ok := working[id]; ok {
				if vertical {
					sum += position.X
				} else {
					sum += position.Y
				}
				count++
			}
		}
		if count < 2 {
			return 0
		}
		mean := sum / float64(count)
		worst := 0.0
		for _, id := range constraint.ParticipantIDs {
			if position, ok := working[id]; ok {
				if vertical {
					worst = math.Max(worst, math.Abs(position.X-mean))
				} else {
					worst = math.Max(worst, math.Abs(position.Y-mean))
				}
			}
		}
		return worst

	case common.ConstraintProximity, common.ConstraintSeparation:
		apart := constraint.Kind == common.ConstraintSeparation
		target := proximityDistance(constraint)
		if apart {
			target = separationDistance(constraint)
		}
		worst := 0.0
		ids := constraint.ParticipantIDs
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, okA := working[ids[i]]
				b, okB := working[ids[j]]
				if !okA || !okB {
					continue
				}
				dist := distance(a, b)
				if apart {
					worst = math.Max(worst, target-dist)
				} else {
					worst = math.Max(worst, dist-target)
				}
			}
		}
		return worst

	case common.ConstraintContainment:
		worst := 0.0
		for _, id := range constraint.ParticipantIDs {
			if position, ok := working[id]; ok {
				worst = math.Max(worst, distance(position, clampToCanvas(position)))
			}
		}
		return worst
	}
	return 0
}

func proximityDistance(constraint common.Constraint) float64 {
	if d, ok := constraint.Parameters["distance"]; ok && d > 0 {
		return d
	}
	return defaultProximityDistance
}

func separationDistance(constraint common.Constraint) float64 {
	if d, ok := constraint.Parameters["distance"]; ok && d > 0 {
		return d
	}
	return defaultSeparationDistance
}

func distance(a, b common.Position) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func clampToCanvas(position common.Position) common.Position {
	return common.Position{
		X: math.Min(math.Max(position.X, common.CanvasMargin), common.CanvasWidth-common.CanvasMargin),
		Y: math.Min(math.Max(position.Y, common.CanvasMargin), common.CanvasHeight-common.CanvasMargin),
	}
}
