package scene

import (
	"github.com/skizzehq/skizze/pkg/common"
	"github.com/skizzehq/skizze/pkg/logger"
)

// Placement grid for entities no solver positioned. Candidates walk the
// canvas row-major until a spot clears every placed entity.
const (
	gridStepX = 1.4 * common.EntityWidth
	gridStepY = 1.5 * common.EntityHeight
)

// shapeByType gives every entity a renderable default shape.
var shapeByType = map[common.NodeType]string{
	common.NodeObject:    "box",
	common.NodeComponent: "box",
	common.NodeQuantity:  "readout",
	common.NodeParameter: "readout",
	common.NodeConcept:   "ellipse",
	common.NodeForce:     "arrow",
}

// Realize produces a positioned scene from a plan: layout hints apply first,
// every remaining entity gets a free grid spot, and each plan relation
// becomes a rendered connection. The plan itself is never mutated.
func Realize(plan *common.DiagramPlan) *common.Scene {
	realized := &common.Scene{
		Width:  common.CanvasWidth,
		Height: common.CanvasHeight,
	}

	var unplaced []*common.SceneEntity
	for _, entity := range plan.Entities {
		sceneEntity := &common.SceneEntity{
			ID:         entity.ID,
			Dimensions: dimensionsFor(entity.Type),
			Style:      map[string]string{"shape": shapeByType[entity.Type]},
		}
		if hint, ok := plan.LayoutHints.Styles[entity.ID]; ok {
			sceneEntity.Style["variant"] = hint
		}
		if position, ok := plan.LayoutHints.Positions[entity.ID]; ok {
			p := position
			sceneEntity.Position = &p
		} else {
			unplaced = append(unplaced, sceneEntity)
		}
		realized.Entities = append(realized.Entities, sceneEntity)
	}

	for _, sceneEntity := range unplaced {
		position := NextFreePosition(realized)
		sceneEntity.Position = &position
	}

	for _, relation := range plan.Relations {
		realized.Connections = append(realized.Connections, common.SceneConnection{
			SourceID: relation.SourceID,
			TargetID: relation.TargetID,
			Label:    relation.Label,
		})
	}

	logger.Debug("[Scene] Realized layout",
		"entities", len(realized.Entities),
		"heuristic", len(unplaced),
		"connections", len(realized.Connections),
	)
	return realized
}

// NextFreePosition walks the placement grid and returns the first spot that
// clears every positioned entity. When the grid is full the last candidate is
// returned; the overlap checker picks the collision up downstream.
func NextFreePosition(s *common.Scene) common.Position {
	candidate := common.Position{X: common.CanvasMargin + common.EntityWidth/2, Y: common.CanvasMargin + common.EntityHeight/2}
	for candidate.Y <= common.CanvasHeight-common.CanvasMargin {
		if !collides(s, candidate) {
			return candidate
		}
		candidate.X += gridStepX
		if candidate.X > common.CanvasWidth-common.CanvasMargin {
			candidate.X = common.CanvasMargin + common.EntityWidth/2
			candidate.Y += gridStepY
		}
	}
	return candidate
}

func collides(s *common.Scene, candidate common.Position) bool {
	for _, entity := range s.Entities {
		if entity.Position == nil {
			continue
		}
		dx := entity.Position.X - candidate.X
		dy := entity.Position.Y - candidate.Y
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		if dx < common.EntityWidth && dy < common.EntityHeight {
			return true
		}
	}
	return false
}

func dimensionsFor(nodeType common.NodeType) common.Dimensions {
	switch nodeType {
	case common.NodeQuantity, common.NodeParameter:
		return common.Dimensions{Width: common.EntityWidth * 0.75, Height: common.EntityHeight * 0.66}
	case common.NodeForce:
		return common.Dimensions{Width: common.EntityWidth * 0.66, Height: common.EntityHeight * 0.66}
	}
	return common.Dimensions{Width: common.EntityWidth, Height: common.EntityHeight}
}
