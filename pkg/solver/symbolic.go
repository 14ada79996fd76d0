package solver

import (
	"context"

	"github.com/skizzehq/skizze/pkg/common"
)

type symbolicBackend struct{}

// NewSymbolicBackend returns the closed-form back-end. Electrical statements
// place components on a circuit loop, mechanics statements on a ground line;
// domains without known relations report unsatisfiable so the chain can fall
// through. Quantities go to a readout column, concepts stay unplaced for the
// heuristic stage.
func NewSymbolicBackend() Backend {
	return symbolicBackend{}
}

func (symbolicBackend) Name() string {
	return BackendSymbolic
}

func (symbolicBackend) Solve(ctx context.Context, req Request) (map[string]common.Position, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	switch req.Domain {
	case common.DomainElectrical:
		return solveCircuitLoop(req), true, nil
	case common.DomainMechanics:
		return solveGroundLine(req), true, nil
	}
	return nil, false, nil
}

// solveCircuitLoop distributes components evenly along a rectangular loop,
// the way a schematic draws a single mesh.
func solveCircuitLoop(req Request) map[string]common.Position {
	components, quantities := splitPlaceable(req.Free())
	positions := make(map[string]common.Position, len(components)+len(quantities))

	left := 2 * common.CanvasMargin
	top := 2 * common.CanvasMargin
	right := common.CanvasWidth - 3*common.CanvasMargin
	bottom := common.CanvasHeight - 2*common.CanvasMargin

	if len(components) > 0 {
		for i, entity := range components {
			t := float64(i) / float64(len(components))
			positions[entity.ID] = pointOnRect(t, left, top, right, bottom)
		}
	}
	placeReadoutColumn(positions, quantities)
	return positions
}

// solveGroundLine sets bodies on a ground baseline with forces in a band
// above them.
func solveGroundLine(req Request) map[string]common.Position {
	free := req.Free()
	var bodies, forces []common.Node
	var quantities []common.Node
	for _, entity := range free {
		switch entity.Type {
		case common.NodeForce:
			forces = append(forces, entity)
		case common.NodeQuantity:
			quantities = append(quantities, entity)
		case common.NodeObject, common.NodeComponent:
			bodies = append(bodies, entity)
		}
	}

	positions := make(map[string]common.Position, len(free))
	baseline := common.CanvasHeight - common.CanvasMargin - common.EntityHeight/2
	if len(bodies) > 0 {
		spacing := (common.CanvasWidth - 2*common.CanvasMargin) / float64(len(bodies)+1)
		for i, entity := range bodies {
			positions[entity.ID] = common.Position{
				X: common.CanvasMargin + spacing*float64(i+1),
				Y: baseline,
			}
		}
	}
	if len(forces) > 0 {
		spacing := (common.CanvasWidth - 2*common.CanvasMargin) / float64(len(forces)+1)
		for i, entity := range forces {
			positions[entity.ID] = common.Position{
				X: common.CanvasMargin + spacing*float64(i+1),
				Y: baseline - 2*common.EntityHeight,
			}
		}
	}
	placeReadoutColumn(positions, quantities)
	return positions
}

// splitPlaceable separates loop components from quantities; concepts and
// parameters are left for later stages.
func splitPlaceable(free []common.Node) (components []common.Node, quantities []common.Node) {
	for _, entity := range free {
		switch entity.Type {
		case common.NodeObject, common.NodeComponent, common.NodeForce:
			components = append(components, entity)
		case common.NodeQuantity:
			quantities = append(quantities, entity)
		}
	}
	return components, quantities
}

// placeReadoutColumn stacks quantities along the right edge.
func placeReadoutColumn(positions map[string]common.Position, quantities []common.Node) {
	x := common.CanvasWidth - common.CanvasMargin - common.EntityWidth/2
	for i, entity := range quantities {
		positions[entity.ID] = common.Position{
			X: x,
			Y: common.CanvasMargin + float64(i)*common.EntityHeight*1.5,
		}
	}
}

// pointOnRect maps t in [0,1) to a point on the rectangle perimeter, walking
// clockwise from the top-left corner.
func pointOnRect(t, left, top, right, bottom float64) common.Position {
	width := right - left
	height := bottom - top
	perimeter := 2 * (width + height)
	d := t * perimeter

	switch {
	case d < width:
		return common.Position{X: left + d, Y: top}
	case d < width+height:
		return common.Position{X: right, Y: top + (d - width)}
	case d < 2*width+height:
		return common.Position{X: right - (d - width - height), Y: bottom}
	default:
		return common.Position{X: left, Y: bottom - (d - 2*width - height)}
	}
}
